package memstore

import (
	"context"
	"fmt"
	"sync"

	"hrprag/internal/adapter/store"
	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// MemoryStore is a process-local port.VectorStore, used for tests and
// for serving a corpus that is re-ingested at startup.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    map[string]domain.Chunk
	vectors   map[string][]float32
	sections  map[string][]string
}

var _ port.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:   make(map[string]domain.Chunk),
		vectors:  make(map[string][]float32),
		sections: make(map[string][]string),
	}
}

func (s *MemoryStore) AddBatch(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension, err := store.CheckBatch(chunks, vectors, s.dimension)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	s.dimension = dimension

	for i, c := range chunks {
		if old, ok := s.chunks[c.ID]; ok {
			s.unindex(old)
		}
		s.chunks[c.ID] = c
		s.vectors[c.ID] = vectors[i]
		s.sections[c.Section] = append(s.sections[c.Section], c.ID)
	}
	return nil
}

func (s *MemoryStore) unindex(c domain.Chunk) {
	ids := s.sections[c.Section]
	for i, id := range ids {
		if id == c.ID {
			s.sections[c.Section] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.sections[c.Section]) == 0 {
		delete(s.sections, c.Section)
	}
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, filter domain.SearchFilter, limit int) ([]port.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []port.SearchHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return []port.SearchHit{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(query))
	}

	hits := make([]port.SearchHit, 0, len(s.chunks))
	for id, c := range s.chunks {
		if !filter.Matches(c) {
			continue
		}
		sim := store.CosineSimilarity(query, s.vectors[id])
		hits = append(hits, port.SearchHit{Chunk: c, Score: store.ScoreFromDistance(1 - sim)})
	}
	return store.RankHits(hits, limit), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, &domain.NotFoundError{Kind: "chunk", Key: id}
	}
	return c, nil
}

func (s *MemoryStore) GetBySection(ctx context.Context, section string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.sections[section]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, s.chunks[id])
	}
	return chunks, nil
}

func (s *MemoryStore) Count(ctx context.Context, subpart *domain.Subpart) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if subpart == nil {
		return len(s.chunks), nil
	}
	n := 0
	for _, c := range s.chunks {
		if c.Subpart != nil && *c.Subpart == *subpart {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]domain.Chunk)
	s.vectors = make(map[string][]float32)
	s.sections = make(map[string][]string)
	s.dimension = 0
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
