package port

import (
	"context"

	"hrprag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunks with their vectors and answers similarity
// and metadata lookups.
type VectorStore interface {
	// AddBatch records all pairs or none. len(chunks) must equal len(vectors).
	AddBatch(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error

	// Search returns up to limit hits matching filter, most similar first.
	Search(ctx context.Context, query []float32, filter domain.SearchFilter, limit int) ([]SearchHit, error)

	// GetByID returns domain.ErrNotFound when id is absent.
	GetByID(ctx context.Context, id string) (domain.Chunk, error)

	// GetBySection returns every chunk of a section in no particular order.
	GetBySection(ctx context.Context, section string) ([]domain.Chunk, error)

	// Count counts all chunks, or only those of one subpart.
	Count(ctx context.Context, subpart *domain.Subpart) (int, error)

	DeleteAll(ctx context.Context) error

	Close() error
}

// SearchHit is a stored chunk with its similarity in [0,1].
type SearchHit struct {
	Chunk domain.Chunk
	Score float64
}
