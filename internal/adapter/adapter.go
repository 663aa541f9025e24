package adapter

import (
	"context"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// Adapter defines the read-side view of a scanned tree.
// Paths are slash-separated and relative to the adapter's root; errors are
// returned as domain errors for consistent handling.
type Adapter interface {
	// Root returns the absolute root path of the tree
	Root() string

	// List returns the direct children of the given directory.
	// Symbolic links are reported as FileTypeSymlink and are not resolved.
	// Entries that disappear while listing are omitted.
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Stat returns metadata for a single path, following symbolic links
	// Returns domain.ErrNotFound if path doesn't exist
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Abs converts a relative path into an absolute filesystem path
	Abs(path string) (string, error)

	// Close releases any resources held by the adapter
	Close() error
}
