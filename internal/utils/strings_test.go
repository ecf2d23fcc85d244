package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		s     string
		limit int
		want  string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -1, ""},
		{"cut lands on rune boundary", "ééé", 4, "éé"},
		{"cut splits two-byte rune", "ééé", 3, "é"},
		{"cut splits three-byte rune", "世界", 4, "世"},
		{"ascii prefix shifts boundary", "xéé", 2, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateUTF8(tt.s, tt.limit)
			if got != tt.want {
				t.Fatalf("TruncateUTF8(%q, %d) = %q, want %q", tt.s, tt.limit, got, tt.want)
			}
			if len(got) > tt.limit && tt.limit > 0 {
				t.Fatalf("result %q exceeds limit %d", got, tt.limit)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestTruncateUTF8LongMultibyte(t *testing.T) {
	t.Parallel()

	// Every cut point across a long multibyte string stays valid.
	s := strings.Repeat("世", 50)
	for limit := 0; limit <= len(s)+1; limit++ {
		got := TruncateUTF8(s, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("limit %d produced invalid UTF-8", limit)
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("limit %d changed content", limit)
		}
	}
}
