package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records which texts actually reach the provider.
type countingEmbedder struct {
	calls   int
	batches [][]string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return 1 }

func TestCachedServesHitsWithoutProviderCalls(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCached(inner)

	first, err := cached.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.calls)

	second, err := cached.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "a full cache hit must not reach the provider")
}

func TestCachedForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCached(inner)

	_, err := cached.EmbedBatch(context.Background(), []string{"alpha"})
	require.NoError(t, err)

	out, err := cached.EmbedBatch(context.Background(), []string{"alpha", "gamma", "alpha"})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, out[0], out[2])
	require.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"gamma"}, inner.batches[1], "only the miss goes out")
}
