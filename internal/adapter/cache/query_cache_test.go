package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hrprag/internal/domain"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.ScoredChunk{{Chunk: domain.Chunk{ID: query}, Score: 0.5}}, nil
}

func TestQueryCacheKeyIncludesFilter(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	results := []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "a"}}}

	c.Put("drug testing", domain.SearchFilter{}, 5, results)

	if _, ok := c.Get("drug testing", domain.SearchFilter{}, 5); !ok {
		t.Error("expected cache hit")
	}
	if _, ok := c.Get("drug testing", domain.SearchFilter{Subpart: domain.SubpartB.Ptr()}, 5); ok {
		t.Error("different filter must miss")
	}
	if _, ok := c.Get("drug testing", domain.SearchFilter{}, 6); ok {
		t.Error("different limit must miss")
	}
}

func TestQueryCacheEviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	f := domain.SearchFilter{}

	c.Put("a", f, 1, nil)
	c.Put("b", f, 1, nil)
	c.Get("a", f, 1)
	c.Put("c", f, 1, nil)

	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
	if _, ok := c.Get("b", f, 1); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := c.Get("a", f, 1); !ok {
		t.Error("expected recently used entry to survive")
	}
}

func TestQueryCacheTTL(t *testing.T) {
	c := NewQueryCache(2, time.Millisecond)
	c.Put("a", domain.SearchFilter{}, 1, nil)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("a", domain.SearchFilter{}, 1); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCachedSearcher(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCachedSearcher(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Search(ctx, "q", domain.SearchFilter{}, 5); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", inner.calls)
	}

	s.Invalidate()
	s.Search(ctx, "q", domain.SearchFilter{}, 5)
	if inner.calls != 2 {
		t.Errorf("expected invalidate to force a backend call, got %d calls", inner.calls)
	}

	inner.err = domain.ErrStore
	if _, err := s.Search(ctx, "other", domain.SearchFilter{}, 5); !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected store error, got %v", err)
	}
	inner.err = nil
	s.Search(ctx, "other", domain.SearchFilter{}, 5)
	if inner.calls != 4 {
		t.Errorf("errors must not be cached, got %d calls", inner.calls)
	}
}

// invalidatingSearcher invalidates the cache while a search is in flight.
type invalidatingSearcher struct {
	cache *QueryCache
	calls int
}

func (s *invalidatingSearcher) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error) {
	s.calls++
	s.cache.Invalidate()
	return []domain.ScoredChunk{{Chunk: domain.Chunk{ID: query}}}, nil
}

func TestCachedSearcherDropsResultsFromBeforeInvalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	inner := &invalidatingSearcher{cache: c}
	s := NewCachedSearcher(inner, c)

	if _, err := s.Search(context.Background(), "q", domain.SearchFilter{}, 5); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 0 {
		t.Errorf("expected stale result not to be cached, got size %d", c.Size())
	}
}

func TestQueryCacheConcurrentAccess(t *testing.T) {
	c := NewQueryCache(4, time.Minute)
	f := domain.SearchFilter{}
	keys := []string{"a", "b", "c", "d", "e", "f"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				k := keys[(i+j)%len(keys)]
				c.Put(k, f, 1, nil)
				c.Get(k, f, 1)
				if j%50 == 0 {
					c.Invalidate()
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 4 {
		t.Errorf("expected at most 4 entries, got %d", c.Size())
	}
	c.Put("z", f, 1, nil)
	if _, ok := c.Get("z", f, 1); !ok {
		t.Error("expected fresh entry to be served after concurrent use")
	}
}
