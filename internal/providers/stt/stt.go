package stt

import (
	"context"
	"fmt"
)

// Segment is the normalized shape every provider must produce. Timestamps
// are local to the submitted chunk (the first segment starts near 0);
// the transcript assembler re-bases them onto the global timeline.
type Segment struct {
	Start      float64
	End        float64
	Text       string
	Confidence float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Provider transcribes one audio chunk. Implementations normalize whatever
// the backend returns into Result; no caller ever sees a provider-specific
// response shape. Which implementation runs is resolved once at startup:
// real credentials select GoogleSpeech, missing credentials select Mock.
type Provider interface {
	Transcribe(ctx context.Context, wav []byte, language string) (*Result, error)
	Close() error
}

// ProviderError marks a transient per-call failure (backend unreachable,
// deadline, bad response). Transcription-stage callers treat it as fatal
// for the containing job.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("stt: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stt: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
