package utils

import "unicode/utf8"

// TruncateUTF8 cuts s to at most limit bytes without splitting a rune: the
// cut backs up to the nearest rune boundary, so the result is always valid
// UTF-8 when the input is.
func TruncateUTF8(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
