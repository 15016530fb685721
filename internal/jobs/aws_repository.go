package jobs

import (
	"context"
	"time"
)

// StorageRepository abstracts the object store holding uploaded originals
// and conversion results.
type StorageRepository interface {
	PutObject(ctx context.Context, key string, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	GetPresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	RemoveObject(ctx context.Context, key string) error
}
