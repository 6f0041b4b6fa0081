package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// RetrievalService embeds queries, searches the vector store and
// reassembles sections.
type RetrievalService struct {
	embedder port.Embedder
	store    port.VectorStore
	logger   *slog.Logger
}

// NewRetrievalService creates a retrieval service over explicit collaborators.
func NewRetrievalService(embedder port.Embedder, store port.VectorStore, logger *slog.Logger) *RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		logger:   logger.With(slog.String("component", "retrieval")),
	}
}

// Search returns hits in similarity order. An empty store yields an empty
// slice and no error.
func (s *RetrievalService) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error) {
	start := time.Now()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Search(ctx, vector, filter, limit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, len(hits))
	for i, h := range hits {
		results[i] = domain.ScoredChunk{Chunk: h.Chunk, Score: h.Score}
	}

	s.logger.Debug("search",
		slog.String("filter", filter.String()),
		slog.Int("limit", limit),
		slog.Int("hits", len(results)),
		slog.Duration("took", time.Since(start)),
	)
	return results, nil
}

// SearchSubpart restricts Search to one 10 CFR 712 subpart.
func (s *RetrievalService) SearchSubpart(ctx context.Context, query string, subpart domain.Subpart, limit int) ([]domain.ScoredChunk, error) {
	return s.Search(ctx, query, domain.SearchFilter{Subpart: subpart.Ptr()}, limit)
}

// GetSection returns every chunk of section ordered by chunk index.
func (s *RetrievalService) GetSection(ctx context.Context, section string) ([]domain.Chunk, error) {
	chunks, err := s.store.GetBySection(ctx, section)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, &domain.NotFoundError{Kind: "section", Key: section}
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

func (s *RetrievalService) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	return s.store.GetByID(ctx, id)
}

func (s *RetrievalService) Count(ctx context.Context, subpart *domain.Subpart) (int, error) {
	return s.store.Count(ctx, subpart)
}

// ClampLimit maps non-positive limits to def and caps the rest at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
