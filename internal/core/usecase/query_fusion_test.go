package usecase

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"veridoc/internal/core/domain"
)

func hitsByID(ids ...string) []domain.SearchHit {
	out := make([]domain.SearchHit, len(ids))
	for i, id := range ids {
		out[i] = domain.SearchHit{ID: id, Text: "text " + id}
	}
	return out
}

func hitIDs(hits []domain.SearchHit) []string {
	out := make([]string, len(hits))
	for i, hit := range hits {
		out[i] = hit.ID
	}
	return out
}

func TestFuseHitsRRFDeterministic(t *testing.T) {
	semantic := hitsByID("a", "b", "c")
	keyword := hitsByID("b", "d")

	first := fuseHitsRRF(semantic, keyword, 60)
	for i := 0; i < 10; i++ {
		again := fuseHitsRRF(semantic, keyword, 60)
		if !reflect.DeepEqual(hitIDs(first), hitIDs(again)) {
			t.Fatalf("fusion order not deterministic: %v vs %v", hitIDs(first), hitIDs(again))
		}
	}
}

func TestFuseHitsRRFAccumulatesSharedChunks(t *testing.T) {
	// "b" appears in both lists, so its two contributions must beat "a",
	// which leads only the semantic list: 1/61 < 1/62 + 1/61.
	semantic := hitsByID("a", "b")
	keyword := hitsByID("b", "c")

	fused := fuseHitsRRF(semantic, keyword, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused hits, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Fatalf("expected shared chunk first, got %v", hitIDs(fused))
	}
}

func TestFuseHitsRRFDedupByTextPrefixWithoutID(t *testing.T) {
	long := strings.Repeat("x", 150)
	semantic := []domain.SearchHit{{Text: long + "left"}}
	keyword := []domain.SearchHit{{Text: long + "right"}}

	fused := fuseHitsRRF(semantic, keyword, 60)
	if len(fused) != 1 {
		t.Fatalf("expected hits sharing a 100-char prefix to collapse, got %d", len(fused))
	}
}

func TestFuseHitsRRFTiesKeepFirstSeenOrder(t *testing.T) {
	// Same ranks in disjoint lists produce identical scores; semantic list
	// entries were seen first and must stay first.
	semantic := hitsByID("s1", "s2")
	keyword := hitsByID("k1", "k2")

	fused := fuseHitsRRF(semantic, keyword, 60)
	want := []string{"s1", "k1", "s2", "k2"}
	if !reflect.DeepEqual(hitIDs(fused), want) {
		t.Fatalf("tie order = %v, want %v", hitIDs(fused), want)
	}
}

func TestFuseHitsRRFCapsCandidates(t *testing.T) {
	var semantic, keyword []domain.SearchHit
	for i := 0; i < 20; i++ {
		semantic = append(semantic, domain.SearchHit{ID: fmt.Sprintf("s%d", i)})
		keyword = append(keyword, domain.SearchHit{ID: fmt.Sprintf("k%d", i)})
	}

	fused := fuseHitsRRF(semantic, keyword, 60)
	if len(fused) != fusedCandidateCap {
		t.Fatalf("expected cap of %d, got %d", fusedCandidateCap, len(fused))
	}
}

func TestFuseHitsRRFKeepsPerSignalScores(t *testing.T) {
	semantic := []domain.SearchHit{{ID: "a", Text: "t", Score: 0.9}}
	keyword := []domain.SearchHit{{ID: "a", Text: "t", BM25Score: 4.2}}

	fused := fuseHitsRRF(semantic, keyword, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 fused hit, got %d", len(fused))
	}
	if fused[0].Score != 0.9 || fused[0].BM25Score != 4.2 {
		t.Fatalf("per-signal scores lost: %+v", fused[0])
	}
}

func TestFuseHitsRRFEmptyInputs(t *testing.T) {
	if got := fuseHitsRRF(nil, nil, 60); len(got) != 0 {
		t.Fatalf("expected empty fusion, got %d hits", len(got))
	}
}
