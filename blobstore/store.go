package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing model artifacts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Open opens a blob for reading. The caller owns the returned
	// reader and must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Put writes a blob atomically: readers never observe a partial
	// blob. size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
