package core

// Backend identifies one of the two interchangeable vector store
// implementations.
type Backend string

const (
	// BackendMilvus is the remote managed search index.
	BackendMilvus Backend = "milvus"
	// BackendChroma is the local embedded vector store.
	BackendChroma Backend = "chroma"
)

// ParseBackend validates a backend identifier, falling back to the
// given default when the input is empty.
func ParseBackend(s string, fallback Backend) (Backend, bool) {
	switch Backend(s) {
	case BackendMilvus, BackendChroma:
		return Backend(s), true
	case "":
		return fallback, true
	}
	return "", false
}

// PageUnit is the text extracted from one page (or slide, or sheet) of
// a source document. Produced by the loader, consumed by the chunker.
type PageUnit struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// Chunk is a semantically bounded span of text derived from a single
// page unit. The ID is assigned after chunking and is a deterministic
// function of (source, page, ordinal within source); repeated ingestion
// of unchanged content reproduces identical ids.
type Chunk struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// IndexedRecord is the persisted form of a chunk in a vector store.
type IndexedRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Category  string    `json:"category,omitempty"`
}

// ScoredRecord is a search hit together with its similarity score.
type ScoredRecord struct {
	Record IndexedRecord `json:"record"`
	Score  float32       `json:"score"`
}

// SearchOutcome carries the hits of a nearest-neighbor search.
// Degraded is set when a category filter could not be applied and the
// store fell back to an unfiltered search, so callers can observe the
// degraded path instead of relying on log side effects.
type SearchOutcome struct {
	Records  []ScoredRecord `json:"records"`
	Degraded bool           `json:"degraded,omitempty"`
}

// IngestSummary reports partial-success counts for one ingestion run.
// There is no rollback of already upserted records on a later failure.
type IngestSummary struct {
	Requested int `json:"requested"`
	Skipped   int `json:"skipped"`
	Loaded    int `json:"loaded"`
	Pages     int `json:"pages"`
	Chunks    int `json:"chunks"`
	Uploaded  int `json:"uploaded"`
}
