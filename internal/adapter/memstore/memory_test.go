package memstore

import (
	"context"
	"errors"
	"testing"

	"hrprag/internal/domain"
)

func testChunk(section string, index int) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(domain.SourceCFR712, section, index),
		Source:     domain.SourceCFR712,
		Subpart:    domain.SubpartForSection(section).Ptr(),
		Section:    section,
		Content:    "text",
		ChunkIndex: index,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.AddBatch(ctx,
		[]domain.Chunk{testChunk("712.15", 0), testChunk("712.15", 1), testChunk("712.35", 0)},
		[][]float32{{1, 0}, {0.7, 0.7}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, []float32{0, 1}, domain.SearchFilter{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Chunk.Section != "712.35" {
		t.Errorf("unexpected hits %+v", hits)
	}

	hits, _ = s.Search(ctx, []float32{0, 1}, domain.SearchFilter{Subpart: domain.SubpartA.Ptr()}, 10)
	for _, h := range hits {
		if h.Chunk.SubpartValue() != "subpart_a" {
			t.Errorf("filter leaked %s", h.Chunk.ID)
		}
	}

	if n, _ := s.Count(ctx, domain.SubpartB.Ptr()); n != 1 {
		t.Errorf("expected 1 subpart_b chunk, got %d", n)
	}
	if section, _ := s.GetBySection(ctx, "712.15"); len(section) != 2 {
		t.Errorf("expected 2 chunks for 712.15, got %d", len(section))
	}
	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryStoreUpsertAndReset(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := testChunk("712.11", 0)

	for i := 0; i < 3; i++ {
		if err := s.AddBatch(ctx, []domain.Chunk{c}, [][]float32{{1, 0, 0}}); err != nil {
			t.Fatal(err)
		}
	}
	if section, _ := s.GetBySection(ctx, "712.11"); len(section) != 1 {
		t.Errorf("re-adding a chunk should not duplicate it, got %d", len(section))
	}

	if err := s.AddBatch(ctx, []domain.Chunk{c}, [][]float32{{1, 0}}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for dimension change, got %v", err)
	}
	if _, err := s.Search(ctx, []float32{1}, domain.SearchFilter{}, 1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for query dimension, got %v", err)
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx, nil); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
	if hits, err := s.Search(ctx, []float32{1}, domain.SearchFilter{}, 1); err != nil || len(hits) != 0 {
		t.Errorf("expected empty result, got %v %v", hits, err)
	}
}
