package embed

import (
	"context"
	"errors"
)

// ErrUnavailable signals the startup-resolved no-embeddings mode. The
// segment ranker degrades to a no-op and key-point extraction falls back to
// naive sentence selection.
var ErrUnavailable = errors.New("embed: provider unavailable")

// Embedder turns a batch of texts into dense vectors, one per input, in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

type Unavailable struct{}

func (Unavailable) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Close() error { return nil }
