package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"hrprag/internal/domain"
)

var (
	bucketChunks   = []byte("chunks")
	bucketSections = []byte("sections")
	bucketMeta     = []byte("meta")
)

// BoltStore owns the bbolt file. Chunk records live in "chunks" keyed by
// chunk id, "sections" maps a section number to the ids cut from it, and
// "meta" holds schema information.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, domain.NewStoreError("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketSections, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, domain.NewStoreError("open", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// storedRecord keeps content as raw bytes: encoding/json would replace
// invalid UTF-8 in a string field with U+FFFD.
type storedRecord struct {
	Chunk   domain.Chunk `json:"c"`
	Content []byte       `json:"b,omitempty"`
	Vector  []float32    `json:"v"`
}

func getRecord(tx *bbolt.Tx, id string) (*storedRecord, error) {
	data := tx.Bucket(bucketChunks).Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", id, err)
	}
	if rec.Content != nil {
		rec.Chunk.Content = string(rec.Content)
		rec.Content = nil
	}
	return &rec, nil
}

func putRecord(tx *bbolt.Tx, rec storedRecord) error {
	rec.Content = []byte(rec.Chunk.Content)
	rec.Chunk.Content = ""
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketChunks).Put([]byte(rec.Chunk.ID), data)
}

func sectionIDs(tx *bbolt.Tx, section string) ([]string, error) {
	data := tx.Bucket(bucketSections).Get([]byte(section))
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode section index %s: %w", section, err)
	}
	return ids, nil
}

func setSectionIDs(tx *bbolt.Tx, section string, ids []string) error {
	b := tx.Bucket(bucketSections)
	if len(ids) == 0 {
		return b.Delete([]byte(section))
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return b.Put([]byte(section), data)
}

// indexChunk adds id to its section list, removing it from oldSection first
// when the chunk moved.
func indexChunk(tx *bbolt.Tx, id, section, oldSection string) error {
	if oldSection != "" && oldSection != section {
		ids, err := sectionIDs(tx, oldSection)
		if err != nil {
			return err
		}
		if err := setSectionIDs(tx, oldSection, without(ids, id)); err != nil {
			return err
		}
	}

	ids, err := sectionIDs(tx, section)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return setSectionIDs(tx, section, append(ids, id))
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// resetBuckets drops and recreates the data buckets, keeping meta.
func resetBuckets(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketChunks, bucketSections} {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}
