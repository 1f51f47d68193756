package index

import (
	"context"
	"testing"

	"veridoc/internal/core/domain"
)

func textChunk(id, docID, text string) domain.Chunk {
	return domain.Chunk{ID: id, DocID: docID, Text: text}
}

func TestKeywordIndexRanksMatchingTermsFirst(t *testing.T) {
	idx := NewKeywordIndex()
	err := idx.Add(context.Background(), []domain.Chunk{
		textChunk("a", "doc-1", "the study enrolled healthy volunteers"),
		textChunk("b", "doc-1", "response rate was 45 percent in the treatment arm"),
		textChunk("c", "doc-1", "adverse events were mild"),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	hits, err := idx.Search(context.Background(), "response rate", 2, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "b" {
		t.Fatalf("expected chunk b first, got %+v", hits)
	}
	if hits[0].BM25Score <= 0 {
		t.Fatalf("expected positive bm25 score, got %f", hits[0].BM25Score)
	}
}

func TestKeywordIndexEmptyCorpus(t *testing.T) {
	idx := NewKeywordIndex()
	hits, err := idx.Search(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits from empty index, got %d", len(hits))
	}
}

func TestKeywordIndexSkipsEmptyTexts(t *testing.T) {
	idx := NewKeywordIndex()
	if err := idx.Add(context.Background(), []domain.Chunk{
		textChunk("a", "doc-1", "   "),
		textChunk("b", "doc-1", "real content here"),
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 indexed chunk, got %d", idx.Len())
	}
}

func TestKeywordIndexDocIDFilter(t *testing.T) {
	idx := NewKeywordIndex()
	if err := idx.Add(context.Background(), []domain.Chunk{
		textChunk("a", "doc-1", "aspirin reduces fever"),
		textChunk("b", "doc-2", "aspirin reduces inflammation"),
		textChunk("c", "doc-3", "aspirin thins blood"),
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	hits, err := idx.Search(context.Background(), "aspirin", 3, []string{"doc-2"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "doc-2" {
		t.Fatalf("expected only doc-2 hits, got %+v", hits)
	}
}

func TestKeywordIndexRebuildReplacesCorpus(t *testing.T) {
	idx := NewKeywordIndex()
	if err := idx.Add(context.Background(), []domain.Chunk{textChunk("a", "doc-1", "old corpus")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	idx.Rebuild([]domain.Chunk{textChunk("b", "doc-2", "new corpus")})

	hits, err := idx.Search(context.Background(), "old", 5, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, h := range hits {
		if h.ID == "a" {
			t.Fatalf("rebuilt index still contains replaced chunk")
		}
	}
}
