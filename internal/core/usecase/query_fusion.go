package usecase

import (
	"sort"

	"veridoc/internal/core/domain"
)

const fusedCandidateCap = 25

type fusedCandidate struct {
	hit   domain.SearchHit
	score float64
}

// fuseHitsRRF combines the semantic and keyword result lists with Reciprocal
// Rank Fusion: each appearance contributes 1/(k+rank). Both lists vote on the
// same chunk identity, so a chunk ranked well by either signal surfaces
// without ever comparing cosine against BM25 directly. Ties keep first-seen
// order, semantic list first.
func fuseHitsRRF(semantic, keyword []domain.SearchHit, rrfK int) []domain.SearchHit {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedCandidate, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	addList := func(hits []domain.SearchHit) {
		for rank, hit := range hits {
			key := fusionKey(hit)
			candidate, ok := acc[key]
			if !ok {
				candidate = &fusedCandidate{hit: hit}
				acc[key] = candidate
				order = append(order, key)
			} else {
				candidate.hit = preferRicherHit(candidate.hit, hit)
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	addList(semantic)
	addList(keyword)

	// Hits keep their per-signal scores (semantic cosine, BM25); the RRF
	// score only decides the ordering.
	out := make([]*fusedCandidate, 0, len(acc))
	for _, key := range order {
		out = append(out, acc[key])
	}

	// Stable sort over insertion order breaks score ties by first appearance.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})

	if len(out) > fusedCandidateCap {
		out = out[:fusedCandidateCap]
	}

	hits := make([]domain.SearchHit, len(out))
	for i, candidate := range out {
		hits[i] = candidate.hit
	}
	return hits
}

// fusionKey is the chunk ID when present, otherwise the first 100 bytes of
// text so near-duplicate anonymous hits still collapse.
func fusionKey(hit domain.SearchHit) string {
	if hit.ID != "" {
		return hit.ID
	}
	if len(hit.Text) > 100 {
		return hit.Text[:100]
	}
	return hit.Text
}

// preferRicherHit keeps per-signal scores from both lists on the surviving
// hit so the reranker sees semantic and BM25 signals together.
func preferRicherHit(current, candidate domain.SearchHit) domain.SearchHit {
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.SourceURI == "" && candidate.SourceURI != "" {
		current.SourceURI = candidate.SourceURI
	}
	if current.BM25Score == 0 && candidate.BM25Score != 0 {
		current.BM25Score = candidate.BM25Score
	}
	if current.Score == 0 && candidate.Score != 0 {
		current.Score = candidate.Score
	}
	return current
}
