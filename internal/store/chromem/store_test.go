package chromem

import (
	"context"
	"path/filepath"
	"testing"

	chromemgo "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinh/rag-assistant/internal/core"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := openStore(t, dir)
	return store, dir
}

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	db, err := chromemgo.NewPersistentDB(filepath.Join(dir, "db"), false)
	require.NoError(t, err)
	store, err := NewStore(db, "docs", filepath.Join(dir, "docs.manifest.json"))
	require.NoError(t, err)
	return store
}

func rec(id, source string, page int, text string, embedding []float32) core.IndexedRecord {
	return core.IndexedRecord{
		ID:        id,
		Source:    source,
		Page:      page,
		Text:      text,
		Embedding: embedding,
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	n, err := store.Upsert(context.Background(), []core.IndexedRecord{
		rec("a_txt-0-0", "a.txt", 0, "about cats", []float32{1, 0}),
		rec("a_txt-0-1", "a.txt", 0, "about pets", []float32{0.7071, 0.7071}),
		rec("b_txt-0-0", "b.txt", 0, "about dogs", []float32{0, 1}),
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store)

	outcome, err := store.Search(context.Background(), []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Records, 3)

	assert.Equal(t, "a_txt-0-0", outcome.Records[0].Record.ID)
	assert.Equal(t, "a_txt-0-1", outcome.Records[1].Record.ID)
	assert.Equal(t, "b_txt-0-0", outcome.Records[2].Record.ID)
	assert.Equal(t, "a.txt", outcome.Records[0].Record.Source)
	assert.Equal(t, "about cats", outcome.Records[0].Record.Text)
	assert.False(t, outcome.Degraded)
}

func TestSearchClampsKToDocumentCount(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store)

	outcome, err := store.Search(context.Background(), []float32{1, 0}, 50, nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Records, 3)
}

func TestSearchOnEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)

	outcome, err := store.Search(context.Background(), []float32{1, 0}, 6, nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Records)
}

func TestUpsertSkipsUnchangedRecords(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	records := []core.IndexedRecord{
		rec("a_txt-0-0", "a.txt", 0, "about cats", []float32{1, 0}),
		rec("a_txt-0-1", "a.txt", 0, "about pets", []float32{0.7071, 0.7071}),
		rec("b_txt-0-0", "b.txt", 0, "about dogs", []float32{0, 1}),
	}

	written, err := store.Upsert(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	written, err = store.Upsert(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 0, written, "unchanged records are skipped, not rewritten")

	outcome, err := store.Search(ctx, []float32{1, 0}, 50, nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Records, 3, "re-upserting the same records must not grow the index")
}

func TestDeleteBySource(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store)

	require.NoError(t, store.DeleteBySource(context.Background(), "a.txt"))

	outcome, err := store.Search(context.Background(), []float32{1, 0}, 50, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, "b_txt-0-0", outcome.Records[0].Record.ID)

	// Deleting an unknown source is a no-op.
	require.NoError(t, store.DeleteBySource(context.Background(), "ghost.txt"))
}

func TestCategoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seed(t, store)

	updated, err := store.UpdateCategory(ctx, "a.txt", "work")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, categories)

	category, err := store.SourceCategory(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "work", category)

	outcome, err := store.Search(ctx, []float32{0, 1}, 3, []string{"work"})
	require.NoError(t, err)
	require.Len(t, outcome.Records, 2, "the filter must exclude untagged records")
	for _, r := range outcome.Records {
		assert.Equal(t, "a.txt", r.Record.Source)
		assert.Equal(t, "work", r.Record.Category)
	}
	assert.False(t, outcome.Degraded)
}

func TestUpdateCategoryWithEmptyValueClearsTag(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seed(t, store)

	_, err := store.UpdateCategory(ctx, "a.txt", "work")
	require.NoError(t, err)

	updated, err := store.UpdateCategory(ctx, "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	category, err := store.SourceCategory(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, category)
}

func TestUpdateCategoryUnknownSource(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store)

	_, err := store.UpdateCategory(context.Background(), "missing.txt", "work")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClearCategories(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seed(t, store)

	_, err := store.UpdateCategory(ctx, "a.txt", "work")
	require.NoError(t, err)
	_, err = store.UpdateCategory(ctx, "b.txt", "home")
	require.NoError(t, err)

	cleared, err := store.ClearCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestManifestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)
	seed(t, store)
	_, err := store.UpdateCategory(ctx, "a.txt", "work")
	require.NoError(t, err)

	reopened := openStore(t, dir)

	categories, err := reopened.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, categories)

	outcome, err := reopened.Search(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Records, 3)
}
