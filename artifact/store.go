package artifact

import (
	"context"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("artifact: not found")

// Store is a blob store addressed by slash-separated names.
type Store interface {
	// Get returns a copy of the blob contents or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces the blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// Exists reports whether the blob is present.
	Exists(ctx context.Context, name string) (bool, error)
	// Rename moves from onto to, replacing any existing blob at to.
	// A missing source yields ErrNotFound.
	Rename(ctx context.Context, from, to string) error
}
