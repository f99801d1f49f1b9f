// Package fsx abstracts file storage so services never touch a concrete
// blob store directly.
package fsx

import (
	"context"
	"io"
)

// FileReader is the read-only subset used by ingest services.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// FileSystem is the full storage surface used by upload handlers.
type FileSystem interface {
	FileReader

	WriteFileStream(ctx context.Context, path string, r io.Reader) error
	DeleteFile(ctx context.Context, path string) error

	// Join builds a storage key from path elements using the store's
	// separator conventions.
	Join(elem ...string) string
}
