package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/logger"
)

// Metadata keys stored on every document.
const (
	metaSource   = "source"
	metaPage     = "page"
	metaCategory = "category"
)

// addConcurrency is the worker count passed to chromem when writing a
// batch of documents.
const addConcurrency = 4

// Store persists indexed records in an embedded chromem-go collection
// on local disk. One Store corresponds to one collection, so the
// provider hands out a separate Store per partition.
//
// Idempotence strategy: read-before-write. chromem rewrites a document
// file on every add, so records whose stored copy already matches are
// skipped instead of blindly overwritten.
type Store struct {
	mu         sync.Mutex
	collection *chromem.Collection
	manifest   *manifest
}

// NewStore opens (or creates) a collection in the given database and
// loads its manifest sidecar. Embeddings are always precomputed by the
// caller, so no embedding function is attached to the collection.
func NewStore(db *chromem.DB, name, manifestPath string) (*Store, error) {
	collection, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	m, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	return &Store{collection: collection, manifest: m}, nil
}

// Upsert writes records into the collection. Records whose stored copy
// is already identical are skipped and not counted, so the return value
// is the number of documents actually written.
func (s *Store) Upsert(ctx context.Context, records []core.IndexedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var toAdd []chromem.Document
	for _, r := range records {
		doc := toDocument(r)
		existing, err := s.collection.GetByID(ctx, r.ID)
		if err == nil && sameDocument(existing, doc) {
			continue
		}
		toAdd = append(toAdd, doc)
	}

	if len(toAdd) > 0 {
		if err := s.collection.AddDocuments(ctx, toAdd, addConcurrency); err != nil {
			return 0, fmt.Errorf("failed to add documents: %w", err)
		}
	}

	for source, group := range groupBySource(records) {
		s.manifest.addRecords(source, group.ids, group.category)
	}
	if err := s.manifest.save(); err != nil {
		return 0, err
	}

	if skipped := len(records) - len(toAdd); skipped > 0 {
		logger.Debug("Skipped %d unchanged documents", skipped)
	}
	return len(toAdd), nil
}

// DeleteBySource removes every record of one source and drops it from
// the manifest.
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.manifest.Sources[source]
	if entry == nil {
		return nil
	}

	if err := s.collection.Delete(ctx, nil, nil, entry.IDs...); err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", source, err)
	}

	delete(s.manifest.Sources, source)
	return s.manifest.save()
}

// Search runs a nearest-neighbor query, restricted to the given
// categories when provided. chromem where clauses are single exact
// matches, so multi-category requests fan out per category and merge
// by similarity. A failing filtered query degrades to an unfiltered
// retry instead of erroring out.
func (s *Store) Search(ctx context.Context, vector []float32, k int, categories []string) (core.SearchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(categories) == 0 {
		records, err := s.query(ctx, vector, k, nil)
		if err != nil {
			return core.SearchOutcome{}, err
		}
		return core.SearchOutcome{Records: records}, nil
	}

	var merged []core.ScoredRecord
	for _, category := range categories {
		records, err := s.query(ctx, vector, k, map[string]string{metaCategory: category})
		if err != nil {
			logger.Warn("Filtered search failed (%v), retrying unfiltered", err)
			records, err = s.query(ctx, vector, k, nil)
			if err != nil {
				return core.SearchOutcome{}, err
			}
			return core.SearchOutcome{Records: records, Degraded: true}, nil
		}
		merged = append(merged, records...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Record.ID < merged[j].Record.ID
	})
	merged = dedupeByID(merged)
	if len(merged) > k {
		merged = merged[:k]
	}
	return core.SearchOutcome{Records: merged}, nil
}

func (s *Store) query(ctx context.Context, vector []float32, k int, where map[string]string) ([]core.ScoredRecord, error) {
	// chromem rejects result counts above the document count.
	n := k
	if count := s.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return []core.ScoredRecord{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	records := make([]core.ScoredRecord, 0, len(results))
	for _, res := range results {
		records = append(records, core.ScoredRecord{
			Record: fromResult(res),
			Score:  res.Similarity,
		})
	}
	return records, nil
}

// UpdateCategory patches the category of every record of one source,
// preserving text and embeddings.
func (s *Store) UpdateCategory(ctx context.Context, source, category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.manifest.Sources[source]
	if entry == nil {
		return 0, core.ErrNotFound
	}

	patched, err := s.patchCategory(ctx, entry.IDs, category)
	if err != nil {
		return patched, err
	}

	entry.Category = category
	if err := s.manifest.save(); err != nil {
		return patched, err
	}
	return patched, nil
}

// ClearCategories resets the category of every tagged source.
func (s *Store) ClearCategories(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, entry := range s.manifest.Sources {
		if entry.Category == "" {
			continue
		}
		patched, err := s.patchCategory(ctx, entry.IDs, "")
		total += patched
		if err != nil {
			return total, err
		}
		entry.Category = ""
	}
	if total == 0 {
		return 0, nil
	}
	if err := s.manifest.save(); err != nil {
		return total, err
	}
	return total, nil
}

// Categories returns the distinct non-empty category tags.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest.categories(), nil
}

// SourceCategory returns the category of a source, empty when untagged
// or unknown.
func (s *Store) SourceCategory(ctx context.Context, source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.manifest.Sources[source]
	if entry == nil {
		return "", nil
	}
	return entry.Category, nil
}

// patchCategory rewrites the category metadata of the given documents.
// Must be called with the store lock held.
func (s *Store) patchCategory(ctx context.Context, ids []string, category string) (int, error) {
	patched := 0
	for _, id := range ids {
		doc, err := s.collection.GetByID(ctx, id)
		if err != nil {
			// Manifest entries can outlive documents when a previous
			// delete was interrupted; tolerate the gap.
			logger.Debug("Record %s missing during category update", id)
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string)
		}
		doc.Metadata[metaCategory] = category
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return patched, fmt.Errorf("failed to update record %s: %w", id, err)
		}
		patched++
	}
	return patched, nil
}

func toDocument(r core.IndexedRecord) chromem.Document {
	return chromem.Document{
		ID: r.ID,
		Metadata: map[string]string{
			metaSource:   r.Source,
			metaPage:     strconv.Itoa(r.Page),
			metaCategory: r.Category,
		},
		Embedding: r.Embedding,
		Content:   r.Text,
	}
}

func fromResult(res chromem.Result) core.IndexedRecord {
	page, _ := strconv.Atoi(res.Metadata[metaPage])
	return core.IndexedRecord{
		ID:        res.ID,
		Text:      res.Content,
		Embedding: res.Embedding,
		Source:    res.Metadata[metaSource],
		Page:      page,
		Category:  res.Metadata[metaCategory],
	}
}

func sameDocument(a, b chromem.Document) bool {
	if a.Content != b.Content || len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range b.Metadata {
		if a.Metadata[k] != v {
			return false
		}
	}
	return true
}

type sourceGroup struct {
	ids      []string
	category string
}

func groupBySource(records []core.IndexedRecord) map[string]*sourceGroup {
	groups := make(map[string]*sourceGroup)
	for _, r := range records {
		g := groups[r.Source]
		if g == nil {
			g = &sourceGroup{}
			groups[r.Source] = g
		}
		g.ids = append(g.ids, r.ID)
		g.category = r.Category
	}
	return groups
}

func dedupeByID(records []core.ScoredRecord) []core.ScoredRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		if _, ok := seen[r.Record.ID]; ok {
			continue
		}
		seen[r.Record.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
