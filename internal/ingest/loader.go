package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/extract"
	"github.com/marvinh/rag-assistant/internal/logger"
)

// Loader fetches raw blobs and turns them into page units. One bad
// source never aborts the batch: unsupported formats and extraction
// failures are logged and skipped.
type Loader struct {
	blobs core.BlobStore
}

// NewLoader creates a loader reading from the given blob store.
func NewLoader(blobs core.BlobStore) *Loader {
	return &Loader{blobs: blobs}
}

// Load extracts page units for the named blobs in input order. When
// names is empty, every blob in the store is loaded. The second return
// value counts sources that were skipped (unsupported format or
// extraction failure).
func (l *Loader) Load(ctx context.Context, names []string) ([]core.PageUnit, int, error) {
	if len(names) == 0 {
		all, err := l.blobs.List(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list blobs: %w", err)
		}
		names = all
	}

	var units []core.PageUnit
	skipped := 0

	for _, name := range names {
		filename := filepath.Base(name)
		ext := strings.ToLower(filepath.Ext(filename))

		extractor, ok := extract.ForExtension(ext)
		if !ok {
			logger.Warn("Skipping %s: %v", filename, core.ErrUnsupportedFormat)
			skipped++
			continue
		}

		pages, err := l.loadOne(ctx, name, ext, extractor)
		if err != nil {
			logger.Warn("Skipping %s: %v", filename, err)
			skipped++
			continue
		}

		for _, page := range pages {
			units = append(units, core.PageUnit{
				// Chunk identity and citations are keyed by the
				// original file name, not the blob path.
				Source: filename,
				Page:   page.Number,
				Text:   page.Text,
			})
		}
		logger.Info("Loaded: %s -> %d pages", filename, len(pages))
	}

	return units, skipped, nil
}

// loadOne downloads a blob, materializes it to a transient file for
// the extraction libraries and guarantees the file is removed on every
// exit path.
func (l *Loader) loadOne(ctx context.Context, name, ext string, extractor extract.Extractor) ([]extract.Page, error) {
	data, err := l.blobs.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}

	tmp, err := os.CreateTemp("", "rag-ingest-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	pages, err := extractor(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	return pages, nil
}
