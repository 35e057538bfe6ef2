package core

import "context"

// BlobStore abstracts the object storage the loader reads raw documents
// from.
type BlobStore interface {
	// List enumerates all blob names currently stored.
	List(ctx context.Context) ([]string, error)
	// Get fetches the raw bytes of one blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put stores a blob under the given name, replacing any previous
	// content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// EmbedService converts batches of texts into fixed-dimension vectors.
type EmbedService interface {
	// EmbedBatch returns one vector per input text, order-preserving,
	// in a single batched call. A provider failure fails the whole
	// batch; retry policy belongs to the caller.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector dimension.
	Dimensions() int
}

// GenerateService produces a grounded answer from retrieved context.
type GenerateService interface {
	Generate(ctx context.Context, system, context, query string, maxTokens int) (string, error)
}

// VectorStore is the capability contract shared by the remote index
// and the local embedded store. Both implementations must expose the
// same semantics even where their internal filter mechanics differ.
type VectorStore interface {
	// Upsert inserts or replaces records by id and returns the number
	// of records actually written. Implementations may detect and skip
	// records whose stored copy is already identical; skipped records
	// are not counted.
	Upsert(ctx context.Context, records []IndexedRecord) (int, error)

	// DeleteBySource removes every record whose source equals the
	// given value. Used to eliminate stale chunks before re-ingesting
	// a changed source.
	DeleteBySource(ctx context.Context, source string) error

	// Search runs a nearest-neighbor search, optionally restricted to
	// records whose category is in the given set. Results are ordered
	// by similarity descending with a deterministic tie-break. If the
	// filter fails at the backend, the store retries unfiltered and
	// marks the outcome as degraded.
	Search(ctx context.Context, vector []float32, k int, categories []string) (SearchOutcome, error)

	// UpdateCategory patches the category of every record belonging
	// to source, preserving all other metadata. An empty category
	// clears the tag. Returns ErrNotFound when no records match.
	UpdateCategory(ctx context.Context, source, category string) (int, error)

	// ClearCategories resets the category of every record in the
	// store and returns the number of records touched.
	ClearCategories(ctx context.Context) (int, error)

	// Categories returns the distinct non-empty category values
	// across all records.
	Categories(ctx context.Context) ([]string, error)

	// SourceCategory returns the category tag of one source, empty
	// when the source is untagged or unknown.
	SourceCategory(ctx context.Context, source string) (string, error)
}

// StoreProvider resolves a vector store for a backend and an opaque
// partition key. The local store keeps one private store per
// partition; the remote index ignores the partition and relies on
// source/category filters inside a single shared index. Callers choose
// the backend per deployment and must not mix semantics.
type StoreProvider interface {
	For(backend Backend, partition string) (VectorStore, error)
}
