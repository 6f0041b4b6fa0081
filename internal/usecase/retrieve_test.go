package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hrprag/internal/adapter/embedding"
	"hrprag/internal/adapter/memstore"
	"hrprag/internal/domain"
)

type failingEmbedder struct {
	*embedding.HashEmbedder
}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, &domain.EmbeddingError{Model: "broken", Err: errors.New("model unavailable")}
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, &domain.EmbeddingError{Model: "broken", Err: errors.New("model unavailable")}
}

func sectionChunk(section string, index int, content string) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(domain.SourceCFR712, section, index),
		Source:     domain.SourceCFR712,
		Subpart:    domain.SubpartForSection(section).Ptr(),
		Section:    section,
		Title:      "Title",
		Citation:   "10 CFR " + section,
		Content:    content,
		ChunkIndex: index,
	}
}

func seed(t *testing.T, emb *embedding.HashEmbedder, st *memstore.MemoryStore, chunks ...domain.Chunk) {
	t.Helper()
	ctx := context.Background()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbeddingText()
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.AddBatch(ctx, chunks, vectors); err != nil {
		t.Fatal(err)
	}
}

func TestRetrievalSearch(t *testing.T) {
	emb := embedding.NewHashEmbedder(128)
	st := memstore.NewMemoryStore()
	svc := NewRetrievalService(emb, st, nil)
	ctx := context.Background()

	results, err := svc.Search(ctx, "drug testing", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("search on empty store should succeed, got %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", results)
	}

	seed(t, emb, st,
		sectionChunk("712.15", 0, "random drug and alcohol testing of certified individuals"),
		sectionChunk("712.34", 0, "psychological evaluation by the designated psychologist"),
	)

	results, err = svc.Search(ctx, "alcohol testing", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Chunk.Section != "712.15" {
		t.Errorf("expected 712.15 to rank first, got %+v", results)
	}

	results, err = svc.SearchSubpart(ctx, "alcohol testing", domain.SubpartB, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.SubpartValue() != "subpart_b" {
		t.Errorf("subpart filter not applied: %+v", results)
	}
}

func TestRetrievalEmbeddingErrorPassesThrough(t *testing.T) {
	svc := NewRetrievalService(failingEmbedder{embedding.NewHashEmbedder(8)}, memstore.NewMemoryStore(), nil)

	_, err := svc.Search(context.Background(), "q", domain.SearchFilter{}, 5)
	var embErr *domain.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Errorf("expected EmbeddingError, got %v", err)
	}
}

func TestRetrievalGetSectionOrder(t *testing.T) {
	emb := embedding.NewHashEmbedder(32)
	st := memstore.NewMemoryStore()
	svc := NewRetrievalService(emb, st, nil)

	seed(t, emb, st,
		sectionChunk("712.15", 2, "third"),
		sectionChunk("712.15", 0, "first"),
		sectionChunk("712.15", 1, "second"),
	)

	chunks, err := svc.GetSection(context.Background(), "712.15")
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("position %d holds chunk index %d", i, c.ChunkIndex)
		}
	}
	if len(chunks) != 3 || chunks[0].Content != "first" {
		t.Errorf("unexpected section %+v", chunks)
	}
}

func TestRetrievalNotFound(t *testing.T) {
	svc := NewRetrievalService(embedding.NewHashEmbedder(8), memstore.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.GetSection(ctx, "nonexistent")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "section" || nf.Key != "nonexistent" {
		t.Errorf("expected section not found, got %v", err)
	}

	_, err = svc.GetChunk(ctx, "10cfr712:712-99:chunk-000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected chunk not found, got %v", err)
	}
}

func TestRetrievalRoundTrip(t *testing.T) {
	emb := embedding.NewHashEmbedder(32)
	st := memstore.NewMemoryStore()
	svc := NewRetrievalService(emb, st, nil)

	var chunks []domain.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, sectionChunk("712.13", i, fmt.Sprintf("medical assessment part %d\nwith detail", i)))
	}
	seed(t, emb, st, chunks...)

	for _, want := range chunks {
		got, err := svc.GetChunk(context.Background(), want.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Content != want.Content || got.Section != want.Section || got.Title != want.Title ||
			got.Citation != want.Citation || got.ChunkIndex != want.ChunkIndex {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	}

	if n, _ := svc.Count(context.Background(), nil); n != 5 {
		t.Errorf("expected count 5, got %d", n)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, 10},
		{0, 10},
		{5, 5},
		{50, 50},
		{500, 50},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in, 10, 50); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
