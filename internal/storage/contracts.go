package storage

import (
	"context"
	"time"
)

// AudioFetcher is the capability the pipeline depends on: storage key in,
// raw bytes out. The pipeline never sees the storage protocol.
type AudioFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// SignedUpload describes a pre-authorized direct upload for the browser
// recorder.
type SignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"objectKey"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// UploadSigner issues signed PUT URLs for reserved object keys.
type UploadSigner interface {
	SignUpload(ctx context.Context, key, contentType string) (*SignedUpload, error)
}
