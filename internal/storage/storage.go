package storage

import (
	"context"
	"io"
	"time"
)

// Uploader mirrors an uploaded video into object storage. Objects are
// written private; clients never receive the raw bucket path.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// Signer mints short-lived download links for mirrored videos.
type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
