package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/logger"
)

// Field names for the documents collection
const (
	FieldID        = "id"
	FieldText      = "text"
	FieldSource    = "source"
	FieldPage      = "page"
	FieldCategory  = "category"
	FieldEmbedding = "embedding"
)

// maxSourceRecords bounds the per-source metadata queries. A single
// source never produces anywhere near this many chunks.
const maxSourceRecords = 10000

// Store persists indexed records in a remote Milvus collection. All
// logical separation happens through source and category filter
// expressions inside one shared index; there is no partition concept
// here, unlike the local store.
//
// Idempotence strategy: blind-overwrite upsert. Records are keyed by
// the deterministic chunk id, so re-writing an unchanged chunk is a
// no-op in effect and no read-before-write check is needed.
type Store struct {
	client       *milvusclient.Client
	collection   string
	embeddingDim int
}

// NewStore connects to Milvus and ensures the collection exists with
// the right schema and index.
func NewStore(ctx context.Context, addr, collection string, embeddingDim int) (*Store, error) {
	logger.Info("Connecting to Milvus at %s with dimension %d", addr, embeddingDim)

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	s := &Store{
		client:       c,
		collection:   collection,
		embeddingDim: embeddingDim,
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert inserts or replaces records by id.
func (s *Store) Upsert(ctx context.Context, records []core.IndexedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	sources := make([]string, len(records))
	pages := make([]int64, len(records))
	categories := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.ID
		texts[i] = r.Text
		sources[i] = r.Source
		pages[i] = int64(r.Page)
		categories[i] = r.Category
		vectors[i] = r.Embedding
	}

	opt := milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldText, texts),
		column.NewColumnVarChar(FieldSource, sources),
		column.NewColumnInt64(FieldPage, pages),
		column.NewColumnVarChar(FieldCategory, categories),
		column.NewColumnFloatVector(FieldEmbedding, s.embeddingDim, vectors),
	)

	result, err := s.client.Upsert(ctx, opt)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert records: %w", err)
	}
	return int(result.UpsertCount), nil
}

// DeleteBySource removes every record of one source.
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	expr := fmt.Sprintf("%s == %s", FieldSource, strconv.Quote(source))
	_, err := s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(expr))
	if err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", source, err)
	}
	return nil
}

// Search runs a nearest-neighbor search, restricted to the given
// categories when provided. A failing filtered search degrades to an
// unfiltered retry instead of erroring out.
func (s *Store) Search(ctx context.Context, vector []float32, k int, categories []string) (core.SearchOutcome, error) {
	filter := categoryFilter(categories)

	records, err := s.search(ctx, vector, k, filter)
	if err == nil {
		return core.SearchOutcome{Records: records}, nil
	}
	if filter == "" {
		return core.SearchOutcome{}, err
	}

	logger.Warn("Filtered search failed (%v), retrying unfiltered", err)
	records, err = s.search(ctx, vector, k, "")
	if err != nil {
		return core.SearchOutcome{}, err
	}
	return core.SearchOutcome{Records: records, Degraded: true}, nil
}

func (s *Store) search(ctx context.Context, vector []float32, k int, filter string) ([]core.ScoredRecord, error) {
	opt := milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithOutputFields(FieldText, FieldSource, FieldPage, FieldCategory)
	if filter != "" {
		opt = opt.WithFilter(filter)
	}

	resultSets, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	if len(resultSets) == 0 {
		return []core.ScoredRecord{}, nil
	}

	rs := resultSets[0]
	records := make([]core.ScoredRecord, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			continue
		}
		rec := core.IndexedRecord{ID: id}
		rec.Text = columnString(rs.GetColumn(FieldText), i)
		rec.Source = columnString(rs.GetColumn(FieldSource), i)
		rec.Page = int(columnInt64(rs.GetColumn(FieldPage), i))
		rec.Category = columnString(rs.GetColumn(FieldCategory), i)

		score := float32(0)
		if i < len(rs.Scores) {
			score = rs.Scores[i]
		}
		records = append(records, core.ScoredRecord{Record: rec, Score: score})
	}
	return records, nil
}

// UpdateCategory patches the category of every record of one source.
// Milvus has no partial update, so the matching rows are read back in
// full (embedding included) and upserted with the new category; all
// other metadata is preserved.
func (s *Store) UpdateCategory(ctx context.Context, source, category string) (int, error) {
	expr := fmt.Sprintf("%s == %s", FieldSource, strconv.Quote(source))
	records, err := s.queryRecords(ctx, expr)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, core.ErrNotFound
	}

	for i := range records {
		records[i].Category = category
	}
	return s.Upsert(ctx, records)
}

// ClearCategories resets the category of every tagged record.
func (s *Store) ClearCategories(ctx context.Context) (int, error) {
	expr := fmt.Sprintf(`%s != ""`, FieldCategory)
	records, err := s.queryRecords(ctx, expr)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	for i := range records {
		records[i].Category = ""
	}
	return s.Upsert(ctx, records)
}

// Categories returns the distinct non-empty category values. Milvus
// has no distinct aggregation, so the scan is deduplicated client
// side.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithFilter(fmt.Sprintf(`%s != ""`, FieldCategory)).
		WithOutputFields(FieldCategory).
		WithLimit(maxSourceRecords)

	results, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	col := results.GetColumn(FieldCategory)
	if col == nil {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	var categories []string
	for i := 0; i < col.Len(); i++ {
		value, err := col.GetAsString(i)
		if err != nil || value == "" {
			continue
		}
		if _, ok := seen[value]; !ok {
			seen[value] = struct{}{}
			categories = append(categories, value)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// SourceCategory returns the category of a source, empty when untagged
// or unknown.
func (s *Store) SourceCategory(ctx context.Context, source string) (string, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithFilter(fmt.Sprintf("%s == %s", FieldSource, strconv.Quote(source))).
		WithOutputFields(FieldCategory).
		WithLimit(1)

	results, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return "", fmt.Errorf("failed to query category for %s: %w", source, err)
	}
	col := results.GetColumn(FieldCategory)
	if col == nil || col.Len() == 0 {
		return "", nil
	}
	return columnString(col, 0), nil
}

// Close closes the connection to Milvus.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// queryRecords fetches full records (embedding included) matching a
// filter expression.
func (s *Store) queryRecords(ctx context.Context, expr string) ([]core.IndexedRecord, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithFilter(expr).
		WithOutputFields(FieldID, FieldText, FieldSource, FieldPage, FieldCategory, FieldEmbedding).
		WithLimit(maxSourceRecords)

	results, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	idCol := results.GetColumn(FieldID)
	if idCol == nil {
		return nil, nil
	}

	var vectors [][]float32
	if vecCol, ok := results.GetColumn(FieldEmbedding).(*column.ColumnFloatVector); ok {
		for _, v := range vecCol.Data() {
			vectors = append(vectors, v)
		}
	}

	records := make([]core.IndexedRecord, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		rec := core.IndexedRecord{
			ID:       columnString(idCol, i),
			Text:     columnString(results.GetColumn(FieldText), i),
			Source:   columnString(results.GetColumn(FieldSource), i),
			Page:     int(columnInt64(results.GetColumn(FieldPage), i)),
			Category: columnString(results.GetColumn(FieldCategory), i),
		}
		if i < len(vectors) {
			rec.Embedding = vectors[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// categoryFilter builds a `category in [...]` expression, empty when
// no categories are requested.
func categoryFilter(categories []string) string {
	var quoted []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		quoted = append(quoted, strconv.Quote(c))
	}
	if len(quoted) == 0 {
		return ""
	}
	return fmt.Sprintf("%s in [%s]", FieldCategory, strings.Join(quoted, ", "))
}

func columnString(col column.Column, i int) string {
	if col == nil {
		return ""
	}
	value, err := col.GetAsString(i)
	if err != nil {
		return ""
	}
	return value
}

func columnInt64(col column.Column, i int) int64 {
	if col == nil {
		return 0
	}
	value, err := col.GetAsInt64(i)
	if err != nil {
		return 0
	}
	return value
}
