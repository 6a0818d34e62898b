package domain

import "context"

// BlobWriter uploads an object to blob storage under the given key.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
