package index

import (
	"context"
	"testing"

	"veridoc/internal/core/domain"
)

func TestHandleIndexChunksKeepsStoresInSync(t *testing.T) {
	h := NewHandle()
	count, err := h.IndexChunks(context.Background(), []domain.Chunk{
		{ID: "a", DocID: "doc-1", Text: "alpha beta", Embedding: []float32{1, 0}},
		{ID: "b", DocID: "doc-1", Text: "gamma delta", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 indexed, got %d", count)
	}
	if h.Chunks().Len() != h.Keywords().Len() {
		t.Fatalf("stores diverged: chunks=%d keywords=%d", h.Chunks().Len(), h.Keywords().Len())
	}
}

func TestHandleIndexChunksDimensionErrorLeavesKeywordIndexUntouched(t *testing.T) {
	h := NewHandle()
	if _, err := h.IndexChunks(context.Background(), []domain.Chunk{
		{ID: "a", DocID: "doc-1", Text: "alpha", Embedding: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	_, err := h.IndexChunks(context.Background(), []domain.Chunk{
		{ID: "b", DocID: "doc-1", Text: "beta", Embedding: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if h.Keywords().Len() != 1 {
		t.Fatalf("keyword index diverged after failed upsert: %d", h.Keywords().Len())
	}
}

func TestHandleTables(t *testing.T) {
	h := NewHandle()
	err := h.IndexTables(context.Background(), []domain.Table{
		{DocID: "doc-1", TableIndex: 0, Columns: []string{"arm", "rate"}, Rows: [][]string{{"drug", "45%"}}},
	})
	if err != nil {
		t.Fatalf("IndexTables() error = %v", err)
	}

	tables, err := h.Tables().ListByDocIDs(context.Background(), []string{"doc-1"})
	if err != nil {
		t.Fatalf("ListByDocIDs() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
}
