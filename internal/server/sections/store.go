// Package sections stores the content of document sections.
//
// Each section lives in its own unit named after the document, its 1-based
// index and the section count, grouped under a namespace (the author's
// name). Units are created exclusively: allocating a document whose units
// already exist fails and leaves nothing behind.
package sections

import (
	"context"
	"io"
)

// Store is a section storage backend.
type Store interface {
	// Allocate creates count empty units for document.
	Allocate(ctx context.Context, namespace, document string, count int) error
	// Open returns the content of one section and its size in bytes.
	Open(ctx context.Context, namespace, document string, section, count int) (io.ReadCloser, int64, error)
	// Write replaces the content of one section with size bytes from r.
	Write(ctx context.Context, namespace, document string, section, count int, r io.Reader, size int64) error
	// Remove deletes every unit of document. Missing units are ignored.
	Remove(ctx context.Context, namespace, document string, count int) error
}
