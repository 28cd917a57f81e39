// Package index provides in-memory nearest-neighbor search over taxonomy
// category embeddings.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/model"
)

// TaxonomyIndex is a flat cosine-distance index over taxonomy embeddings.
// The taxonomy is small reference data, so exact brute-force search beats
// the bookkeeping of an approximate structure; the index is rebuilt
// wholesale whenever the taxonomy table is replaced.
type TaxonomyIndex struct {
	mu      sync.RWMutex
	entries []indexEntry
	dim     int
}

type indexEntry struct {
	id        string
	embedding []float32
}

// New creates an empty index. Call Rebuild before searching.
func New() *TaxonomyIndex {
	return &TaxonomyIndex{}
}

// Rebuild replaces the index contents from the full taxonomy set. Entries
// without an embedding are skipped; mixed dimensions are rejected because
// distances across dimensions are meaningless.
func (ix *TaxonomyIndex) Rebuild(entries []model.TaxonomyEntry) error {
	built := make([]indexEntry, 0, len(entries))
	dim := 0

	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(entry.Embedding)
		} else if len(entry.Embedding) != dim {
			return fmt.Errorf("taxonomy entry %q: %w: %d != %d", entry.ID, common.ErrDimensionMismatch, len(entry.Embedding), dim)
		}
		built = append(built, indexEntry{id: entry.ID, embedding: entry.Embedding})
	}

	// Stable id order makes tie-breaking deterministic.
	sort.Slice(built, func(i, j int) bool { return built[i].id < built[j].id })

	ix.mu.Lock()
	ix.entries = built
	ix.dim = dim
	ix.mu.Unlock()

	return nil
}

// Len returns the number of indexed entries.
func (ix *TaxonomyIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns the k entries nearest to the query vector, ascending by
// cosine distance, ties broken by taxonomy id ascending. An empty index or
// query returns no candidates.
func (ix *TaxonomyIndex) Search(embedding []float32, k int) []model.Candidate {
	if k <= 0 || len(embedding) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 || len(embedding) != ix.dim {
		return nil
	}

	candidates := make([]model.Candidate, 0, len(ix.entries))
	for _, entry := range ix.entries {
		candidates = append(candidates, model.Candidate{
			TaxonomyID: entry.id,
			Distance:   Distance(embedding, entry.embedding),
			Source:     model.SourceVector,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].TaxonomyID < candidates[j].TaxonomyID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}

// Distance returns the cosine distance (1 - cosine similarity) between two
// vectors. Mismatched or zero vectors score as maximally distant.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
