package ingest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBlobs is an in-memory blob store for tests.
type memBlobs struct {
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memBlobs) Get(ctx context.Context, name string) ([]byte, error) {
	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("no such blob: %s", name)
	}
	return data, nil
}

func (m *memBlobs) Put(ctx context.Context, name string, data []byte) error {
	m.blobs[name] = data
	return nil
}

func (m *memBlobs) Delete(ctx context.Context, name string) error {
	delete(m.blobs, name)
	return nil
}

func TestLoadSkipsUnsupportedFormats(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["notes.txt"] = []byte("Some plain text.")
	blobs.blobs["tool.exe"] = []byte{0x4d, 0x5a}

	loader := NewLoader(blobs)
	units, skipped, err := loader.Load(context.Background(), []string{"notes.txt", "tool.exe"})
	require.NoError(t, err)

	assert.Equal(t, 1, skipped, "the executable must be skipped, not fail the batch")
	require.Len(t, units, 1)
	assert.Equal(t, "notes.txt", units[0].Source)
	assert.Equal(t, 0, units[0].Page)
	assert.Equal(t, "Some plain text.", units[0].Text)
}

func TestLoadSkipsCorruptFiles(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["broken.pdf"] = []byte("this is not a pdf")
	blobs.blobs["fine.txt"] = []byte("ok")

	loader := NewLoader(blobs)
	units, skipped, err := loader.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, units, 1)
	assert.Equal(t, "fine.txt", units[0].Source)
}

func TestLoadEmptyNamesLoadsEverything(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["a.txt"] = []byte("alpha")
	blobs.blobs["b.txt"] = []byte("beta")

	loader := NewLoader(blobs)
	units, skipped, err := loader.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, skipped)
	require.Len(t, units, 2)
	assert.Equal(t, "a.txt", units[0].Source)
	assert.Equal(t, "b.txt", units[1].Source)
}

func TestLoadUsesBaseNameAsSource(t *testing.T) {
	blobs := newMemBlobs()
	blobs.blobs["user-7/report.txt"] = []byte("partitioned upload")

	loader := NewLoader(blobs)
	units, skipped, err := loader.Load(context.Background(), []string{"user-7/report.txt"})
	require.NoError(t, err)

	assert.Equal(t, 0, skipped)
	require.Len(t, units, 1)
	assert.Equal(t, "report.txt", units[0].Source)
}
