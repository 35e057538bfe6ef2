package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/llm"
	"github.com/marvinh/rag-assistant/internal/logger"
)

const (
	// defaultTopK is how many chunks are retrieved per question.
	defaultTopK = 6

	// contextCharLimit caps the assembled context so the prompt stays
	// inside the model's window regardless of chunk sizes.
	contextCharLimit = 12000

	contextSeparator = "\n\n---\n\n"
)

// Answer is the result of one retrieval-augmented question.
type Answer struct {
	Text     string   `json:"answer"`
	Sources  []string `json:"sources"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Engine retrieves relevant chunks for a question and asks the
// generation model for a grounded answer.
type Engine struct {
	embedder  core.EmbedService
	generator core.GenerateService
	maxTokens int
}

// NewEngine creates a query engine.
func NewEngine(embedder core.EmbedService, generator core.GenerateService, maxTokens int) *Engine {
	return &Engine{
		embedder:  embedder,
		generator: generator,
		maxTokens: maxTokens,
	}
}

// Answer embeds the question, retrieves the top chunks from the given
// store (optionally restricted by category) and generates an answer
// grounded in them.
func (e *Engine) Answer(ctx context.Context, store core.VectorStore, query string, categories []string) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, fmt.Errorf("query must not be empty")
	}

	vectors, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to embed query: %w", err)
	}

	outcome, err := store.Search(ctx, vectors[0], defaultTopK, categories)
	if err != nil {
		return Answer{}, fmt.Errorf("search failed: %w", err)
	}
	if outcome.Degraded {
		logger.Warn("Category filter was not applied; answering from unfiltered results")
	}

	excerpts, sources := BuildContext(outcome.Records)

	text, err := e.generator.Generate(ctx, llm.GroundedAnswerPrompt, excerpts, query, e.maxTokens)
	if err != nil {
		return Answer{}, fmt.Errorf("generation failed: %w", err)
	}

	return Answer{Text: text, Sources: sources, Degraded: outcome.Degraded}, nil
}

// BuildContext formats retrieved records into the excerpt block handed
// to the model, plus the parallel list of citations. Records with
// empty text are dropped and ranks are renumbered over what remains.
// The assembled block is hard-truncated at contextCharLimit.
func BuildContext(records []core.ScoredRecord) (string, []string) {
	var parts []string
	var sources []string

	rank := 1
	for _, r := range records {
		if strings.TrimSpace(r.Record.Text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%d] %s (page %d):\n%s", rank, r.Record.Source, r.Record.Page, r.Record.Text))
		sources = append(sources, fmt.Sprintf("%s:p%d", r.Record.Source, r.Record.Page))
		rank++
	}

	// The cap counts characters, not bytes: a byte cut would shrink the
	// budget for non-ASCII text and could split a rune mid-sequence.
	excerpts := strings.Join(parts, contextSeparator)
	if utf8.RuneCountInString(excerpts) > contextCharLimit {
		excerpts = string([]rune(excerpts)[:contextCharLimit])
	}
	return excerpts, sources
}
