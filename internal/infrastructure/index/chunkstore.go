package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"veridoc/internal/core/domain"
)

// filterOverfetch is how many extra candidates a doc-id-filtered search
// ranks before widening to the full corpus.
const filterOverfetch = 3

// ChunkStore is an in-memory semantic index. Vectors are L2-normalized on
// insert and on query, so inner-product ranking equals cosine similarity.
// The dimensionality is fixed by the first upserted batch and can only
// change while the store is empty.
type ChunkStore struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	chunks  []domain.Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

func (s *ChunkStore) Upsert(_ context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "upsert chunks", fmt.Errorf("empty embedding"))
	}
	for _, c := range chunks {
		if len(c.Embedding) != dim {
			return 0, domain.WrapError(domain.ErrInvalidInput, "upsert chunks",
				fmt.Errorf("ragged embedding batch: %d vs %d", len(c.Embedding), dim))
		}
	}

	if s.dim != 0 && s.dim != dim {
		if len(s.vectors) > 0 {
			return 0, domain.WrapError(domain.ErrConfig, "upsert chunks",
				fmt.Errorf("embedding dimension mismatch: store=%d batch=%d", s.dim, dim))
		}
		// Empty store: safe to reinitialize with the new dimensionality.
		s.dim = dim
	}
	if s.dim == 0 {
		s.dim = dim
	}

	for _, c := range chunks {
		s.vectors = append(s.vectors, normalize(c.Embedding))
		stored := c
		stored.Embedding = nil
		s.chunks = append(s.chunks, stored)
	}
	return len(chunks), nil
}

func (s *ChunkStore) Search(_ context.Context, queryVector []float32, topK int, allowedDocIDs []string) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = 6
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(queryVector) != s.dim {
		return nil, domain.WrapError(domain.ErrConfig, "semantic search",
			fmt.Errorf("query dimension mismatch: store=%d query=%d", s.dim, len(queryVector)))
	}

	q := normalize(queryVector)
	order := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		order[i] = i
		scores[i] = dot(q, v)
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	allowed := docIDSet(allowedDocIDs)

	// Rank a limited candidate window first; widen to the whole corpus only
	// when the doc-id filter leaves the result under-supplied.
	limit := topK
	if allowed != nil {
		limit = topK * filterOverfetch
	}
	for {
		if limit > len(order) {
			limit = len(order)
		}
		hits := make([]domain.SearchHit, 0, topK)
		for _, idx := range order[:limit] {
			c := s.chunks[idx]
			if allowed != nil {
				if _, ok := allowed[c.DocID]; !ok {
					continue
				}
			}
			hits = append(hits, domain.SearchHit{
				ID:         c.ID,
				DocID:      c.DocID,
				PageNum:    c.PageNum,
				ChunkIndex: c.ChunkIndex,
				Text:       c.Text,
				SourceURI:  c.SourceURI,
				Score:      scores[idx],
			})
			if len(hits) == topK {
				return hits, nil
			}
		}
		if limit == len(order) {
			return hits, nil
		}
		limit *= filterOverfetch
	}
}

// Len reports the number of indexed chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Snapshot returns a copy of the authoritative chunk set, used to rebuild
// the keyword index so both stay indexed by the same IDs.
func (s *ChunkStore) Snapshot() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-12
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func docIDSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
