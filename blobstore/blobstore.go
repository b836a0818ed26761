// Package blobstore is the durable string-keyed store the canvas layout is
// written to.
//
// Backends:
//   - memory: process-local, for tests and throwaway sessions
//   - file: one file per key in a directory
//   - sqlite: a single table in a local database file
//   - redis: a Redis server, shared between machines
//   - mongo: a MongoDB collection
//
// Open picks a backend from a URL.
package blobstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("blobstore: closed")

// Store holds opaque blobs by key.
type Store interface {
	// Get returns nil, nil when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
