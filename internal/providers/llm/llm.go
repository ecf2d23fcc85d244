package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by the Unavailable variant. Callers that can
// degrade (summarization, key points, chat) check for it and fall back;
// nothing in the pipeline treats it as fatal.
var ErrUnavailable = errors.New("llm: provider unavailable")

type Provider interface {
	// Complete returns the full response for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Unavailable is the startup-resolved variant for missing configuration.
type Unavailable struct{}

func (Unavailable) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	errs <- ErrUnavailable
	close(out)
	close(errs)
	return out, errs
}

func (Unavailable) Close() error { return nil }
