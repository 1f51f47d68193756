package index

import (
	"context"
	"sync"

	"veridoc/internal/core/domain"
)

// TableStore keeps the structured tables captured at ingestion, keyed by
// document ID, for the TABLE reasoning path.
type TableStore struct {
	mu     sync.RWMutex
	byDoc  map[string][]domain.Table
	docIDs []string
}

func NewTableStore() *TableStore {
	return &TableStore{byDoc: map[string][]domain.Table{}}
}

func (t *TableStore) Add(_ context.Context, tables []domain.Table) error {
	if len(tables) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, table := range tables {
		if _, ok := t.byDoc[table.DocID]; !ok {
			t.docIDs = append(t.docIDs, table.DocID)
		}
		t.byDoc[table.DocID] = append(t.byDoc[table.DocID], table)
	}
	return nil
}

// ListByDocIDs returns tables for the given documents; with no filter it
// returns every stored table in insertion order.
func (t *TableStore) ListByDocIDs(_ context.Context, docIDs []string) ([]domain.Table, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := docIDs
	if len(ids) == 0 {
		ids = t.docIDs
	}
	var out []domain.Table
	for _, id := range ids {
		out = append(out, t.byDoc[id]...)
	}
	return out, nil
}
