package ingest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinh/rag-assistant/internal/core"
)

// memStore is an in-memory vector store recording pipeline calls.
type memStore struct {
	records map[string]core.IndexedRecord
	deletes []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]core.IndexedRecord)}
}

func (m *memStore) Upsert(ctx context.Context, records []core.IndexedRecord) (int, error) {
	for _, r := range records {
		m.records[r.ID] = r
	}
	return len(records), nil
}

func (m *memStore) DeleteBySource(ctx context.Context, source string) error {
	m.deletes = append(m.deletes, source)
	for id, r := range m.records {
		if r.Source == source {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *memStore) Search(ctx context.Context, vector []float32, k int, categories []string) (core.SearchOutcome, error) {
	return core.SearchOutcome{}, nil
}

func (m *memStore) UpdateCategory(ctx context.Context, source, category string) (int, error) {
	return 0, core.ErrNotFound
}

func (m *memStore) ClearCategories(ctx context.Context) (int, error) { return 0, nil }

func (m *memStore) Categories(ctx context.Context) ([]string, error) { return nil, nil }

func (m *memStore) SourceCategory(ctx context.Context, source string) (string, error) {
	return "", nil
}

func (m *memStore) ids() []string {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newTestPipeline(blobs core.BlobStore) *Pipeline {
	embedder := &topicEmbedder{}
	return NewPipeline(NewLoader(blobs), NewSemanticChunker(embedder), embedder)
}

func TestIngestWritesRecordsWithEmbeddings(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["pets.txt"] = []byte("The cat sat. The cat slept. The cat purred. The dog barked.")

	store := newMemStore()
	summary, err := newTestPipeline(blobs).Ingest(context.Background(), nil, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Uploaded)
	assert.Equal(t, 0, summary.Skipped)

	require.Len(t, store.records, 2)
	for _, r := range store.records {
		assert.Equal(t, "pets.txt", r.Source)
		assert.NotEmpty(t, r.Embedding)
		assert.NotEmpty(t, r.Text)
	}
	assert.Equal(t, []string{"pets.txt"}, store.deletes, "stale records must be cleared before writing")
}

func TestIngestIsIdempotent(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["pets.txt"] = []byte("The cat sat. The cat slept. The cat purred. The dog barked.")
	blobs.blobs["plain.txt"] = []byte("A single thought.")

	store := newMemStore()
	pipeline := newTestPipeline(blobs)

	_, err := pipeline.Ingest(context.Background(), nil, store, nil)
	require.NoError(t, err)
	firstIDs := store.ids()

	_, err = pipeline.Ingest(context.Background(), nil, store, nil)
	require.NoError(t, err)

	assert.Equal(t, firstIDs, store.ids(), "re-ingesting unchanged content must not grow the index")
}

func TestIngestReportsStageProgress(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["pets.txt"] = []byte("The cat sat. The cat slept. The cat purred. The dog barked.")

	var percents []int
	_, err := newTestPipeline(blobs).Ingest(context.Background(), nil, newMemStore(), func(p int) {
		percents = append(percents, p)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 10, 25, 40, 90, 100}, percents)
}

func TestIngestReportsDoneWhenNothingToChunk(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["empty.txt"] = []byte("   ")

	var last int
	_, err := newTestPipeline(blobs).Ingest(context.Background(), nil, newMemStore(), func(p int) {
		last = p
	})
	require.NoError(t, err)

	assert.Equal(t, 100, last, "a job with no chunks still finishes")
}

func TestIngestReportsSkips(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["good.txt"] = []byte("Readable content.")
	blobs.blobs["bad.exe"] = []byte{0x00}

	store := newMemStore()
	summary, err := newTestPipeline(blobs).Ingest(context.Background(), []string{"good.txt", "bad.exe"}, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Requested)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Loaded)
}
