package port

import "hrprag/internal/domain"

// Chunker splits one section's text into bounded, ordered chunks.
type Chunker interface {
	Chunk(text string, meta domain.SectionMetadata) []domain.Chunk
}
