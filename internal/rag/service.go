package rag

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/ingest"
)

// FileInfo describes one uploaded document and its category tag.
type FileInfo struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Service ties the blob store, ingestion pipeline, query engine and
// vector stores together behind the operations the API exposes. Every
// operation takes a backend name and a partition key; the partition
// scopes both the uploaded blobs and, on the local backend, the index
// itself.
type Service struct {
	blobs          core.BlobStore
	pipeline       *ingest.Pipeline
	engine         *Engine
	stores         core.StoreProvider
	defaultBackend core.Backend
	progress       *progressTracker
}

// NewService assembles the application service.
func NewService(blobs core.BlobStore, pipeline *ingest.Pipeline, engine *Engine, stores core.StoreProvider, defaultBackend core.Backend) *Service {
	return &Service{
		blobs:          blobs,
		pipeline:       pipeline,
		engine:         engine,
		stores:         stores,
		defaultBackend: defaultBackend,
		progress:       newProgressTracker(),
	}
}

// UploadFile stores a raw document blob in the partition. The file is
// not indexed until Ingest runs.
func (s *Service) UploadFile(ctx context.Context, partition, filename string, data []byte) error {
	filename = path.Base(filename)
	if filename == "" || filename == "." || filename == "/" {
		return fmt.Errorf("invalid file name")
	}
	return s.blobs.Put(ctx, blobName(partition, filename), data)
}

// ListFiles returns the uploaded documents of a partition with their
// category tags.
func (s *Service) ListFiles(ctx context.Context, backend, partition string) ([]FileInfo, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return nil, err
	}

	names, err := s.partitionBlobs(ctx, partition)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(names))
	for _, name := range names {
		filename := path.Base(name)
		category, err := store.SourceCategory(ctx, filename)
		if err != nil {
			return nil, err
		}
		files = append(files, FileInfo{Name: filename, Category: category})
	}
	return files, nil
}

// DeleteFile removes a document blob and all of its indexed records.
func (s *Service) DeleteFile(ctx context.Context, backend, partition, filename string) error {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return err
	}

	filename = path.Base(filename)
	if err := s.blobs.Delete(ctx, blobName(partition, filename)); err != nil {
		return err
	}
	return store.DeleteBySource(ctx, filename)
}

// Ingest runs the pipeline over the named documents of a partition, or
// over all of them when filenames is empty.
func (s *Service) Ingest(ctx context.Context, backend, partition string, filenames []string) (core.IngestSummary, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return core.IngestSummary{}, err
	}

	var names []string
	if len(filenames) == 0 {
		names, err = s.partitionBlobs(ctx, partition)
		if err != nil {
			return core.IngestSummary{}, err
		}
	} else {
		for _, f := range filenames {
			names = append(names, blobName(partition, path.Base(f)))
		}
	}

	return s.pipeline.Ingest(ctx, names, store, func(percent int) {
		s.progress.set(partition, percent)
	})
}

// Progress returns the last reported ingestion percentage of a
// partition, 0 when no job has run yet.
func (s *Service) Progress(partition string) int {
	return s.progress.get(partition)
}

// Ask answers a question from the partition's indexed documents.
func (s *Service) Ask(ctx context.Context, backend, partition, query string, categories []string) (Answer, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return Answer{}, err
	}
	return s.engine.Answer(ctx, store, query, categories)
}

// SetCategory tags every indexed record of one document with a
// category. An empty category clears the tag.
func (s *Service) SetCategory(ctx context.Context, backend, partition, filename, category string) (int, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return 0, err
	}
	return store.UpdateCategory(ctx, path.Base(filename), category)
}

// Categories lists the distinct category tags of a partition.
func (s *Service) Categories(ctx context.Context, backend, partition string) ([]string, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return nil, err
	}
	return store.Categories(ctx)
}

// ClearCategories removes every category tag in a partition and
// returns the number of records touched.
func (s *Service) ClearCategories(ctx context.Context, backend, partition string) (int, error) {
	store, err := s.resolve(backend, partition)
	if err != nil {
		return 0, err
	}
	return store.ClearCategories(ctx)
}

// resolve parses the backend name (falling back to the configured
// default) and fetches the matching store.
func (s *Service) resolve(backend, partition string) (core.VectorStore, error) {
	b, ok := core.ParseBackend(backend, s.defaultBackend)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownBackend, backend)
	}
	return s.stores.For(b, partition)
}

// partitionBlobs lists the blob names belonging to one partition.
func (s *Service) partitionBlobs(ctx context.Context, partition string) ([]string, error) {
	all, err := s.blobs.List(ctx)
	if err != nil {
		return nil, err
	}
	if partition == "" {
		return all, nil
	}

	prefix := partition + "/"
	var names []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func blobName(partition, filename string) string {
	if partition == "" {
		return filename
	}
	return partition + "/" + filename
}
