package domain

import "context"

// KeyValueStore is the persistence port for the stores. Values are opaque
// serialized blobs rewritten wholesale on every save. Load returns
// ErrNotFound when the key is absent.
type KeyValueStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
