package core

import "errors"

var (
	// ErrUnsupportedFormat marks a blob whose extension has no
	// registered extractor. The loader skips such blobs instead of
	// failing the batch.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNotFound is returned when a category update or a delete
	// targets a source with zero matching records.
	ErrNotFound = errors.New("no matching records")

	// ErrUnknownBackend is returned for backend identifiers outside
	// the supported set.
	ErrUnknownBackend = errors.New("unknown vector store backend")
)
