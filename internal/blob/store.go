// Package blob implements the key-value blob store consumed by the
// ingestion pipeline (spec §6.1): put/get/exists/url over keys under the
// files/ and images/ prefixes.
package blob

import "context"

// Store is the blob store interface consumed by the fetcher and splitter.
// Keys are UTF-8, at most 1024 bytes, '/'-delimited.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

const (
	FilesPrefix  = "files/"
	ImagesPrefix = "images/"
)

// MaxKeyLength is the maximum key length accepted by any Store
// implementation, per spec §6.1.
const MaxKeyLength = 1024
