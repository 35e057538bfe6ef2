package embed

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/marvinh/rag-assistant/internal/core"
)

// Cached wraps an EmbedService with a content-hash cache. The semantic
// chunker and the storage pass both embed whole-chunk texts during one
// ingestion run; sharing the cache avoids paying for the same text
// twice.
type Cached struct {
	inner core.EmbedService

	mu      sync.Mutex
	vectors map[[32]byte][]float32
}

// NewCached wraps the given service with an in-memory cache.
func NewCached(inner core.EmbedService) *Cached {
	return &Cached{
		inner:   inner,
		vectors: make(map[[32]byte][]float32),
	}
}

// EmbedBatch serves cache hits locally and forwards only the misses to
// the wrapped service as a single batch. Output order matches input
// order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int

	c.mu.Lock()
	for i, text := range texts {
		key := sha256.Sum256([]byte(text))
		if vec, ok := c.vectors[key]; ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, vec := range vectors {
		out[missIdx[j]] = vec
		c.vectors[sha256.Sum256([]byte(missTexts[j]))] = vec
	}
	c.mu.Unlock()

	return out, nil
}

// Dimensions returns the wrapped service's vector dimension.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}
