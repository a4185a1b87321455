package storage

import "context"

// Store is the opaque content store holding file bytes. The rest of the
// system treats it as an external collaborator addressed by key; record
// metadata, permissions, and soft-deletion live elsewhere.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
