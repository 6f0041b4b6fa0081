package store

import (
	"fmt"
	"math"
	"sort"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoreFromDistance turns a cosine distance into a similarity in [0,1].
func ScoreFromDistance(distance float64) float64 {
	return math.Min(1, math.Max(0, 1-distance))
}

// CheckBatch validates an AddBatch call before anything is written and
// returns the shared vector dimension.
func CheckBatch(chunks []domain.Chunk, vectors [][]float32, dimension int) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrValidation, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: empty vector for chunk %q", domain.ErrValidation, chunks[i].ID)
		}
		if dimension == 0 {
			dimension = len(v)
		}
		if len(v) != dimension {
			return 0, fmt.Errorf("%w: vector for chunk %q has %d dimensions, expected %d",
				domain.ErrValidation, chunks[i].ID, len(v), dimension)
		}
		if chunks[i].ID == "" {
			return 0, fmt.Errorf("%w: chunk %d has no id", domain.ErrValidation, i)
		}
	}
	return dimension, nil
}

// RankHits sorts by descending score, breaking ties by id, and truncates to limit.
func RankHits(hits []port.SearchHit, limit int) []port.SearchHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}
