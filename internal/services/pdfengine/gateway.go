package pdfengine

import (
	"context"

	"bindery/internal/book"
)

// CompressResult is a freshly produced per-item representation.
type CompressResult struct {
	Bytes []byte
	Size  int64
}

// Gateway produces exact encoded bundles and per-item compressed
// representations. Implementations may be slow (they run a real encoder);
// callers treat every error as retryable unless tagged otherwise.
type Gateway interface {
	// Encode renders the ordered items into one bundle and returns its
	// exact byte content.
	Encode(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) ([]byte, error)
	// EncodedSize returns the exact encoded size of the bundle without
	// retaining its bytes.
	EncodedSize(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) (int64, error)
	// Compress produces the per-item representation for the given level.
	Compress(ctx context.Context, item book.Item, level book.CompressionLevel) (CompressResult, error)
	// PageCount returns the authoritative page count of an encoded
	// multi-page container.
	PageCount(ctx context.Context, data []byte) (int, error)
}
