package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/logger"
)

// ProgressFunc receives ingestion progress as a 0-100 percentage.
// Reported at stage boundaries so pollers can show job state.
type ProgressFunc func(percent int)

// Pipeline runs one ingestion job as sequential stages: load, chunk,
// assign ids, embed, upsert. Stages never run concurrently for the
// same batch; callers that re-ingest the same source concurrently must
// serialize per source themselves.
type Pipeline struct {
	loader   *Loader
	chunker  *SemanticChunker
	embedder core.EmbedService
}

// NewPipeline wires the ingestion stages together.
func NewPipeline(loader *Loader, chunker *SemanticChunker, embedder core.EmbedService) *Pipeline {
	return &Pipeline{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
	}
}

// Ingest processes the named blobs into the given vector store and
// returns partial-success counts. Chunk boundaries are not stable
// across re-chunking, so every touched source has its stale records
// deleted before the fresh ones are written. Records already upserted
// are not rolled back when a later stage fails. progress may be nil;
// when set it is called with stage-boundary percentages.
func (p *Pipeline) Ingest(ctx context.Context, names []string, store core.VectorStore, progress ProgressFunc) (core.IngestSummary, error) {
	report := func(percent int) {
		if progress != nil {
			progress(percent)
		}
	}
	report(0)

	summary := core.IngestSummary{Requested: len(names)}

	units, skipped, err := p.loader.Load(ctx, names)
	if err != nil {
		return summary, err
	}
	summary.Skipped = skipped
	summary.Pages = len(units)
	summary.Loaded = countSources(units)
	report(10)

	chunks, err := p.chunker.Chunk(ctx, units)
	if err != nil {
		return summary, err
	}
	summary.Chunks = len(chunks)
	if len(chunks) == 0 {
		report(100)
		return summary, nil
	}
	report(25)

	// The loader emits pages grouped by source already; the stable
	// sort enforces the id assigner's grouping precondition even if a
	// future loader interleaves sources.
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Source < chunks[j].Source
	})
	chunks = AssignIDs(chunks)

	for _, source := range distinctSources(chunks) {
		if err := store.DeleteBySource(ctx, source); err != nil {
			return summary, fmt.Errorf("failed to delete stale records for %s: %w", source, err)
		}
	}
	report(40)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return summary, fmt.Errorf("failed to embed chunks: %w", err)
	}
	report(90)

	records := make([]core.IndexedRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = core.IndexedRecord{
			ID:        chunk.ID,
			Text:      chunk.Text,
			Embedding: vectors[i],
			Source:    chunk.Source,
			Page:      chunk.Page,
			Category:  chunk.Category,
		}
	}

	written, err := store.Upsert(ctx, records)
	if err != nil {
		return summary, fmt.Errorf("failed to upsert records: %w", err)
	}
	summary.Uploaded = written
	report(100)

	logger.Info("Ingested %d chunks from %d sources (%d skipped)", summary.Chunks, summary.Loaded, summary.Skipped)
	return summary, nil
}

func countSources(units []core.PageUnit) int {
	seen := make(map[string]struct{})
	for _, u := range units {
		seen[u.Source] = struct{}{}
	}
	return len(seen)
}

func distinctSources(chunks []core.Chunk) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, c := range chunks {
		if _, ok := seen[c.Source]; !ok {
			seen[c.Source] = struct{}{}
			sources = append(sources, c.Source)
		}
	}
	return sources
}
