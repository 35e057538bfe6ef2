package ingest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/marvinh/rag-assistant/internal/core"
)

// DefaultBreakpointPercentile is the percentile of the inter-sentence
// distance distribution above which a chunk boundary is inserted.
const DefaultBreakpointPercentile = 95.0

// SemanticChunker splits page text at semantic-distance breakpoints
// instead of fixed-size windows. Successive sentence windows are
// embedded, the cosine distance between neighbors is computed, and a
// boundary is placed wherever the distance exceeds a percentile of the
// whole distribution for that page. Fixed windows fragment coherent
// passages; the percentile rule adapts to document style.
type SemanticChunker struct {
	embedder   core.EmbedService
	percentile float64
	bufferSize int
}

// NewSemanticChunker creates a chunker with the default percentile
// policy. Pass the shared cached embedder so chunking embeddings are
// reused by the storage pass.
func NewSemanticChunker(embedder core.EmbedService) *SemanticChunker {
	return &SemanticChunker{
		embedder:   embedder,
		percentile: DefaultBreakpointPercentile,
		bufferSize: 1,
	}
}

// Chunk converts page units into chunks, preserving input order so the
// output stays grouped by source for the identity assigner. Each chunk
// inherits the source and page of its originating page unit.
func (c *SemanticChunker) Chunk(ctx context.Context, pages []core.PageUnit) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for _, page := range pages {
		texts, err := c.splitPage(ctx, page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s page %d: %w", page.Source, page.Page, err)
		}
		for _, text := range texts {
			chunks = append(chunks, core.Chunk{
				Source: page.Source,
				Page:   page.Page,
				Text:   text,
			})
		}
	}
	return chunks, nil
}

// splitPage returns the chunk texts of a single page.
func (c *SemanticChunker) splitPage(ctx context.Context, text string) ([]string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return []string{sentences[0]}, nil
	}

	// Embed each sentence with its neighbors so the distance signal
	// reflects local topic flow rather than single-sentence noise.
	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - c.bufferSize
		if lo < 0 {
			lo = 0
		}
		hi := i + c.bufferSize + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		windows[i] = strings.Join(sentences[lo:hi], " ")
	}

	vectors, err := c.embedder.EmbedBatch(ctx, windows)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(windows) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(windows))
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - cosineSimilarity(vectors[i], vectors[i+1])
	}
	threshold := percentile(distances, c.percentile)

	var out []string
	start := 0
	for i, d := range distances {
		if d > threshold {
			out = append(out, strings.Join(sentences[start:i+1], " "))
			start = i + 1
		}
	}
	out = append(out, strings.Join(sentences[start:], " "))
	return out, nil
}

// splitSentences breaks text into sentence-like segments on
// terminating punctuation and blank lines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '.', '!', '?':
			current.WriteRune(r)
			// Terminator counts only when followed by whitespace or
			// end of text, so "3.14" stays in one piece.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				flush()
			}
		case '\n':
			// A blank line is a boundary even without punctuation.
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			} else {
				current.WriteRune(' ')
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return sentences
}

// cosineSimilarity computes the cosine of the angle between two
// vectors, 0 when either has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the p-th percentile of values using linear
// interpolation between ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
