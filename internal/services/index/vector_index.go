package index

import (
	"fmt"
	"math"
	"sort"
)

// VectorIndex is an in-memory flat vector index searched by cosine
// similarity. Entries are appended during a build and never mutated after
// the index is published; readers need no locking.
type VectorIndex struct {
	dimension int
	ids       []string
	vectors   [][]float32
}

// ScoredID pairs an indexed fragment id with its similarity to a query.
type ScoredID struct {
	ID    string
	Score float64
}

// NewVectorIndex creates an empty index for vectors of the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Add appends an entry. The vector must match the index dimension.
func (idx *VectorIndex) Add(id string, vector []float32) error {
	if len(vector) != idx.dimension {
		return fmt.Errorf("vector for %s has dimension %d, index expects %d", id, len(vector), idx.dimension)
	}
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vector)
	return nil
}

// Len returns the number of indexed entries.
func (idx *VectorIndex) Len() int {
	return len(idx.ids)
}

// Dimension returns the vector dimension the index was built for.
func (idx *VectorIndex) Dimension() int {
	return idx.dimension
}

// IDs returns the indexed ids in insertion order.
func (idx *VectorIndex) IDs() []string {
	out := make([]string, len(idx.ids))
	copy(out, idx.ids)
	return out
}

// Search returns the k entries most similar to the query vector, highest
// score first. Equal scores keep insertion order. An empty index or k <= 0
// returns an empty result.
func (idx *VectorIndex) Search(query []float32, k int) ([]ScoredID, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), idx.dimension)
	}
	if k <= 0 || len(idx.ids) == 0 {
		return nil, nil
	}

	scored := make([]ScoredID, len(idx.ids))
	for i := range idx.ids {
		scored[i] = ScoredID{
			ID:    idx.ids[i],
			Score: CosineSimilarity(query, idx.vectors[i]),
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// A zero vector scores 0 against everything.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
