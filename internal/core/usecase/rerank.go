package usecase

import (
	"sort"
	"strings"

	"veridoc/internal/core/domain"
)

// RerankWeights balances the signals of the composite reranker. The split
// was hand-tuned, not learned; it is exposed for tuning.
type RerankWeights struct {
	Semantic float64
	Jaccard  float64
	BM25     float64
	Phrase   float64
}

func DefaultRerankWeights() RerankWeights {
	return RerankWeights{
		Semantic: 0.4,
		Jaccard:  0.3,
		BM25:     0.2,
		Phrase:   0.1,
	}
}

func (w RerankWeights) withDefaults() RerankWeights {
	if w.Semantic == 0 && w.Jaccard == 0 && w.BM25 == 0 && w.Phrase == 0 {
		return DefaultRerankWeights()
	}
	return w
}

const phraseMatchBonus = 0.3

// rerankHits orders fused candidates by a lexical-plus-retrieval composite
// score and keeps the top topK. When the candidate set is already within
// topK the fusion order stands untouched.
func rerankHits(question string, candidates []domain.SearchHit, topK int, weights RerankWeights) []domain.SearchHit {
	if len(candidates) == 0 {
		return candidates
	}
	if topK <= 0 {
		topK = 5
	}
	if len(candidates) <= topK {
		return candidates
	}
	weights = weights.withDefaults()

	scored := make([]domain.SearchHit, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		scored[i].RerankScore = scoreQueryDocument(question, scored[i], weights)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	return scored[:topK]
}

func scoreQueryDocument(query string, hit domain.SearchHit, weights RerankWeights) float64 {
	queryLower := strings.ToLower(query)
	docLower := strings.ToLower(hit.Text)

	jaccard := jaccardOverlap(queryLower, docLower)

	phraseBoost := 0.0
	if queryLower != "" && strings.Contains(docLower, queryLower) {
		phraseBoost = phraseMatchBonus
	}

	semantic := clamp01(hit.Score)

	bm25 := 0.0
	if hit.BM25Score > 0 {
		bm25 = hit.BM25Score / 10.0
		if bm25 > 1 {
			bm25 = 1
		}
	}

	score := weights.Semantic*semantic +
		weights.Jaccard*jaccard +
		weights.BM25*bm25 +
		weights.Phrase*phraseBoost
	if score > 1 {
		score = 1
	}
	return score
}

func jaccardOverlap(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	intersection := 0
	for token := range aTokens {
		if _, ok := bTokens[token]; ok {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	out := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		out[field] = struct{}{}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
