package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/ingest"
	"github.com/marvinh/rag-assistant/internal/store"
)

// wordEmbedder maps texts into a two-dimensional topic space so
// retrieval behaves deterministically without a provider.
type wordEmbedder struct{}

func (wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		cats := float32(strings.Count(strings.ToLower(text), "cat"))
		dogs := float32(strings.Count(strings.ToLower(text), "dog"))
		if cats == 0 && dogs == 0 {
			cats, dogs = 1, 1
		}
		out[i] = []float32{cats, dogs}
	}
	return out, nil
}

func (wordEmbedder) Dimensions() int { return 2 }

type fakeBlobs struct {
	blobs map[string][]byte
}

func (f *fakeBlobs) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.blobs))
	for name := range f.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeBlobs) Get(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.blobs[name]
	if !ok {
		return nil, fmt.Errorf("no such blob: %s", name)
	}
	return data, nil
}

func (f *fakeBlobs) Put(ctx context.Context, name string, data []byte) error {
	f.blobs[name] = data
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, name string) error {
	delete(f.blobs, name)
	return nil
}

func newTestService(t *testing.T) (*Service, *stubGenerator) {
	t.Helper()

	blobs := &fakeBlobs{blobs: make(map[string][]byte)}
	embedder := wordEmbedder{}
	generator := &stubGenerator{reply: "grounded answer"}

	stores, err := store.NewProvider(nil, t.TempDir())
	require.NoError(t, err)

	pipeline := ingest.NewPipeline(ingest.NewLoader(blobs), ingest.NewSemanticChunker(embedder), embedder)
	engine := NewEngine(embedder, generator, 600)
	return NewService(blobs, pipeline, engine, stores, core.BackendChroma), generator
}

func TestServiceUploadIngestAsk(t *testing.T) {
	ctx := context.Background()
	svc, generator := newTestService(t)

	text := "The cat sat. The cat slept. The cat purred. The dog barked."
	require.NoError(t, svc.UploadFile(ctx, "user-1", "pets.txt", []byte(text)))

	summary, err := svc.Ingest(ctx, "", "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Uploaded)

	answer, err := svc.Ask(ctx, "", "user-1", "Tell me about the cat", nil)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer.Text)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "pets.txt:p0", answer.Sources[0])
	assert.Contains(t, generator.lastExcerpts, "pets.txt (page 0):")
}

func TestServiceTracksIngestionProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.Equal(t, 0, svc.Progress("user-1"), "no job yet reads as zero")

	require.NoError(t, svc.UploadFile(ctx, "user-1", "pets.txt", []byte("The cat sat. The dog barked.")))
	_, err := svc.Ingest(ctx, "", "user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 100, svc.Progress("user-1"))
	assert.Equal(t, 0, svc.Progress("user-2"), "progress is per partition")
}

func TestServicePartitionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.UploadFile(ctx, "user-1", "pets.txt", []byte("The cat sat. The dog barked.")))
	_, err := svc.Ingest(ctx, "", "user-1", nil)
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, "", "user-2", "Tell me about the cat", nil)
	require.NoError(t, err)
	assert.Empty(t, answer.Sources, "another partition must not see the documents")
}

func TestServiceCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.UploadFile(ctx, "user-1", "pets.txt", []byte("The cat sat. The dog barked.")))
	_, err := svc.Ingest(ctx, "", "user-1", nil)
	require.NoError(t, err)

	updated, err := svc.SetCategory(ctx, "", "user-1", "pets.txt", "animals")
	require.NoError(t, err)
	assert.Greater(t, updated, 0)

	categories, err := svc.Categories(ctx, "", "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"animals"}, categories)

	files, err := svc.ListFiles(ctx, "", "user-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FileInfo{Name: "pets.txt", Category: "animals"}, files[0])

	cleared, err := svc.ClearCategories(ctx, "", "user-1")
	require.NoError(t, err)
	assert.Greater(t, cleared, 0)

	categories, err = svc.Categories(ctx, "", "user-1")
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestServiceDeleteFileRemovesIndex(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.UploadFile(ctx, "user-1", "pets.txt", []byte("The cat sat. The dog barked.")))
	_, err := svc.Ingest(ctx, "", "user-1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(ctx, "", "user-1", "pets.txt"))

	files, err := svc.ListFiles(ctx, "", "user-1")
	require.NoError(t, err)
	assert.Empty(t, files)

	answer, err := svc.Ask(ctx, "", "user-1", "Tell me about the cat", nil)
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
}

func TestServiceRejectsUnknownBackend(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Ask(context.Background(), "postgres", "user-1", "question", nil)
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
}

func TestServiceRejectsUnconfiguredMilvus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Categories(context.Background(), "milvus", "user-1")
	assert.Error(t, err)
}
