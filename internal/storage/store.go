package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned when a stored object cannot be found.
var ErrNotExist = errors.New("storage: object does not exist")

// Store persists artifact bytes under folder-relative keys.
type Store interface {
	// Write stores data at key and returns the canonical key.
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// Remove deletes key. Missing objects are not an error.
	Remove(ctx context.Context, key string) error
}
