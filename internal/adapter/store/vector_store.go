package store

import (
	"context"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// BoltVectorStore implements port.VectorStore on a BoltStore.
// Uses brute-force search over an in-memory mirror of the chunks bucket;
// the corpus is a few thousand chunks.
type BoltVectorStore struct {
	store     *BoltStore
	mu        sync.RWMutex
	dimension int
	entries   map[string]vectorEntry
}

type vectorEntry struct {
	chunk  domain.Chunk
	vector []float32
}

var _ port.VectorStore = (*BoltVectorStore)(nil)

// NewBoltVectorStore loads every stored record into memory.
func NewBoltVectorStore(store *BoltStore) (*BoltVectorStore, error) {
	s := &BoltVectorStore{
		store:   store,
		entries: make(map[string]vectorEntry),
	}
	if err := s.loadVectors(); err != nil {
		return nil, domain.NewStoreError("load", err)
	}
	return s, nil
}

// OpenBoltVectorStore opens path and wraps it in a vector store.
func OpenBoltVectorStore(path string) (*BoltVectorStore, error) {
	bs, err := NewBoltStore(path)
	if err != nil {
		return nil, err
	}
	s, err := NewBoltVectorStore(bs)
	if err != nil {
		bs.Close()
		return nil, err
	}
	return s, nil
}

// Store exposes the underlying bolt file for schema checks.
func (s *BoltVectorStore) Store() *BoltStore {
	return s.store
}

func (s *BoltVectorStore) loadVectors() error {
	return s.store.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, _ []byte) error {
			rec, err := getRecord(tx, string(k))
			if err != nil {
				return err
			}
			if s.dimension == 0 {
				s.dimension = len(rec.Vector)
			}
			s.entries[rec.Chunk.ID] = vectorEntry{chunk: rec.Chunk, vector: rec.Vector}
			return nil
		})
	})
}

// AddBatch writes every pair in one transaction. The in-memory mirror is
// only touched after the commit succeeds.
func (s *BoltVectorStore) AddBatch(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension, err := CheckBatch(chunks, vectors, s.dimension)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	err = s.store.db.Update(func(tx *bbolt.Tx) error {
		for i, chunk := range chunks {
			old, err := getRecord(tx, chunk.ID)
			if err != nil {
				return err
			}
			oldSection := ""
			if old != nil {
				oldSection = old.Chunk.Section
			}

			if err := putRecord(tx, storedRecord{Chunk: chunk, Vector: vectors[i]}); err != nil {
				return err
			}
			if err := indexChunk(tx, chunk.ID, chunk.Section, oldSection); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.NewStoreError("add", err)
	}

	s.dimension = dimension
	for i, chunk := range chunks {
		s.entries[chunk.ID] = vectorEntry{chunk: chunk, vector: vectors[i]}
	}
	return nil
}

// Search scores every stored chunk that passes filter.
func (s *BoltVectorStore) Search(ctx context.Context, query []float32, filter domain.SearchFilter, limit int) ([]port.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []port.SearchHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return []port.SearchHit{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(query))
	}

	hits := make([]port.SearchHit, 0, len(s.entries))
	for _, entry := range s.entries {
		if !filter.Matches(entry.chunk) {
			continue
		}
		hits = append(hits, port.SearchHit{
			Chunk: entry.chunk,
			Score: ScoreFromDistance(1 - CosineSimilarity(query, entry.vector)),
		})
	}

	return RankHits(hits, limit), nil
}

func (s *BoltVectorStore) GetByID(ctx context.Context, id string) (domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chunk{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return domain.Chunk{}, &domain.NotFoundError{Kind: "chunk", Key: id}
	}
	return entry.chunk, nil
}

// GetBySection resolves the section index against the chunks bucket.
func (s *BoltVectorStore) GetBySection(ctx context.Context, section string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	err := s.store.db.View(func(tx *bbolt.Tx) error {
		ids, err := sectionIDs(tx, section)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rec, err := getRecord(tx, id)
			if err != nil {
				return err
			}
			if rec != nil {
				chunks = append(chunks, rec.Chunk)
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStoreError("get section", err)
	}
	return chunks, nil
}

func (s *BoltVectorStore) Count(ctx context.Context, subpart *domain.Subpart) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if subpart == nil {
		return len(s.entries), nil
	}
	filter := domain.SearchFilter{Subpart: subpart}
	n := 0
	for _, entry := range s.entries {
		if filter.Matches(entry.chunk) {
			n++
		}
	}
	return n, nil
}

func (s *BoltVectorStore) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.db.Update(resetBuckets); err != nil {
		return domain.NewStoreError("delete all", err)
	}
	s.entries = make(map[string]vectorEntry)
	s.dimension = 0
	return nil
}

func (s *BoltVectorStore) Close() error {
	return domain.NewStoreError("close", s.store.Close())
}
