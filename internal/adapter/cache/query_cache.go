package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"hrprag/internal/domain"
)

// QueryCache is an LRU of search results with a TTL. Invalidate bumps a
// generation so results computed before a re-ingest are never served, even
// when the search that produced them finishes after the purge.
type QueryCache struct {
	lru *expirable.LRU[string, cacheEntry]
	gen atomic.Uint64
}

type cacheEntry struct {
	results []domain.ScoredChunk
	gen     uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{lru: expirable.NewLRU[string, cacheEntry](maxSize, nil, ttl)}
}

func cacheKey(query string, filter domain.SearchFilter, limit int) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(filter.String()))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(limit))
	h.Write(n[:])
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *QueryCache) Get(query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, bool) {
	key := cacheKey(query, filter, limit)
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if entry.gen != c.gen.Load() {
		c.lru.Remove(key)
		return nil, false
	}
	return entry.results, true
}

// Put stores results under the current generation.
func (c *QueryCache) Put(query string, filter domain.SearchFilter, limit int, results []domain.ScoredChunk) {
	c.put(query, filter, limit, results, c.gen.Load())
}

func (c *QueryCache) put(query string, filter domain.SearchFilter, limit int, results []domain.ScoredChunk, gen uint64) {
	if gen != c.gen.Load() {
		return
	}
	c.lru.Add(cacheKey(query, filter, limit), cacheEntry{results: results, gen: gen})
}

func (c *QueryCache) Invalidate() {
	c.gen.Add(1)
	c.lru.Purge()
}

func (c *QueryCache) Size() int {
	return c.lru.Len()
}

// Searcher is the query path being cached.
type Searcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error)
}

// CachedSearcher serves repeated searches from a QueryCache. Errors are
// never cached.
type CachedSearcher struct {
	searcher Searcher
	cache    *QueryCache
}

func NewCachedSearcher(searcher Searcher, cache *QueryCache) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error) {
	if results, hit := s.cache.Get(query, filter, limit); hit {
		return results, nil
	}

	gen := s.cache.gen.Load()
	results, err := s.searcher.Search(ctx, query, filter, limit)
	if err != nil {
		return nil, err
	}

	s.cache.put(query, filter, limit, results, gen)
	return results, nil
}

// Invalidate drops every cached result, e.g. after ingestion.
func (s *CachedSearcher) Invalidate() {
	s.cache.Invalidate()
}
