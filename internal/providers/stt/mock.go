package stt

import "context"

// Mock is the permanent degraded mode selected at startup when speech
// credentials are missing. It returns a deterministic placeholder result so
// the rest of the pipeline still runs; it never fails, which keeps the
// "unavailable" condition distinct from a transient ProviderError.
type Mock struct{}

func (Mock) Transcribe(ctx context.Context, wav []byte, language string) (*Result, error) {
	if language == "" {
		language = "en-US"
	}
	return &Result{
		Text:     "This is a placeholder transcription because no speech credentials are configured.",
		Language: language,
		Segments: []Segment{
			{Start: 0, End: 2, Text: "This is a placeholder transcription because no speech credentials are configured.", Confidence: 1},
		},
	}, nil
}

func (Mock) Close() error { return nil }
