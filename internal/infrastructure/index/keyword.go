package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"veridoc/internal/core/domain"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// KeywordIndex is a lexical BM25 index over the chunk corpus. Tokenization
// is deliberately plain: lowercase, whitespace split, no stemming or
// stopword removal. The index is rebuilt from the authoritative chunk set
// on every Rebuild call instead of being updated incrementally; ingestion
// is rare relative to queries, so the O(n) rebuild keeps it consistent with
// the chunk store for free.
type KeywordIndex struct {
	mu         sync.RWMutex
	chunks     []domain.Chunk
	tokenized  [][]string
	docFreq    map[string]int
	docLengths []int
	avgDocLen  float64
}

func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{docFreq: map[string]int{}}
}

// Add appends chunks to the corpus and rebuilds term statistics.
func (k *KeywordIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.chunks = append(k.chunks, chunks...)
	k.rebuildLocked()
	return nil
}

// Rebuild replaces the corpus with the authoritative chunk set.
func (k *KeywordIndex) Rebuild(chunks []domain.Chunk) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.chunks = append([]domain.Chunk(nil), chunks...)
	k.rebuildLocked()
}

func (k *KeywordIndex) rebuildLocked() {
	k.tokenized = k.tokenized[:0]
	k.docLengths = k.docLengths[:0]
	k.docFreq = map[string]int{}

	kept := k.chunks[:0]
	var totalLen int
	for _, c := range k.chunks {
		tokens := tokenize(c.Text)
		if len(tokens) == 0 {
			continue
		}
		kept = append(kept, c)
		k.tokenized = append(k.tokenized, tokens)
		k.docLengths = append(k.docLengths, len(tokens))
		totalLen += len(tokens)
		seen := map[string]struct{}{}
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			k.docFreq[t]++
		}
	}
	k.chunks = kept
	if len(k.docLengths) > 0 {
		k.avgDocLen = float64(totalLen) / float64(len(k.docLengths))
	} else {
		k.avgDocLen = 0
	}
}

func (k *KeywordIndex) Search(_ context.Context, queryText string, topK int, allowedDocIDs []string) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = 6
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if len(k.chunks) == 0 {
		return nil, nil
	}
	queryTokens := tokenize(queryText)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	n := float64(len(k.chunks))
	scores := make([]float64, len(k.chunks))
	for i, tokens := range k.tokenized {
		tf := map[string]int{}
		for _, t := range tokens {
			tf[t]++
		}
		dl := float64(k.docLengths[i])
		for _, q := range queryTokens {
			freq := float64(tf[q])
			if freq == 0 {
				continue
			}
			df := float64(k.docFreq[q])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			scores[i] += idf * freq * (bm25K1 + 1) / (freq + bm25K1*(1-bm25B+bm25B*dl/k.avgDocLen))
		}
	}

	order := make([]int, len(k.chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	allowed := docIDSet(allowedDocIDs)
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
			if scores[idx] <= 0 {
				continue
			}
			c := k.chunks[idx]
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
				BM25Score:  scores[idx],
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

// Len reports the number of indexed chunks with non-empty text.
func (k *KeywordIndex) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.chunks)
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
