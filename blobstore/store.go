// Package blobstore abstracts storage of workspace artifacts.
//
// Each workspace persists exactly two artifacts: the binary index snapshot and
// the JSON metadata list. Both are small, written whole, and replaced
// atomically; the interface is therefore whole-blob rather than streaming.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing workspace artifacts.
type Store interface {
	// Get reads the named blob in full.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put atomically replaces the named blob with data.
	// Readers never observe a partially written blob.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the named blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
