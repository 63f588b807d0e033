// Package vector defines the storage contract for chunk embeddings.
package vector

import "context"

// ChunkPayload is the metadata persisted alongside each embedding. Text is
// never empty for a stored point, and ChunkIndex is unique per DocumentID.
type ChunkPayload struct {
	DocumentID  string
	FileName    string
	ChunkIndex  int
	Text        string
	TotalChunks int
	// ChunkID is the logical chunk identifier. The store assigns its own
	// point id (UUID format), so the logical id lives only in the payload.
	ChunkID string
}

// Point is the persisted unit: a store-format id, the embedding and the
// chunk payload. Points are never mutated after creation; re-ingestion
// writes fresh points.
type Point struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID      string
	Score   float32
	Payload ChunkPayload
}

// SearchFilter narrows a search. The zero value matches everything;
// retrieval is global across documents unless a DocumentID is given.
type SearchFilter struct {
	DocumentID string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// EnsureCollection makes sure the backing collection exists with the
	// given dimension and cosine distance. Idempotent and safe under
	// concurrent callers; "already exists" is success.
	EnsureCollection(ctx context.Context, dimension uint64) error
	// Upsert writes points and returns only once the store has confirmed
	// them, so a subsequent Search sees every point.
	Upsert(ctx context.Context, points []Point) error
	// Search returns up to limit results ordered by descending similarity.
	// Tie order among equal scores is store-native and unspecified. An
	// empty collection or no matches yields an empty slice, not an error.
	Search(ctx context.Context, vector []float32, limit uint64, filter *SearchFilter) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}
