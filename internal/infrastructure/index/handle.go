package index

import (
	"context"
	"fmt"
	"sync"

	"veridoc/internal/core/domain"
)

// Handle owns the semantic index, the keyword index, and the table store
// for one session of documents. It is created by the bootstrap and passed
// by reference to every component that needs it, never a process-wide
// singleton.
//
// IndexChunks is the single write barrier of the ingestion path: the
// vector upsert and the keyword rebuild happen under one lock, so the two
// indexes cannot diverge. Queries hold only the per-store read locks.
type Handle struct {
	writeMu sync.Mutex

	chunks   *ChunkStore
	keywords *KeywordIndex
	tables   *TableStore
}

func NewHandle() *Handle {
	return &Handle{
		chunks:   NewChunkStore(),
		keywords: NewKeywordIndex(),
		tables:   NewTableStore(),
	}
}

func (h *Handle) IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	count, err := h.chunks.Upsert(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("upsert chunk vectors: %w", err)
	}
	h.keywords.Rebuild(h.chunks.Snapshot())
	return count, nil
}

func (h *Handle) IndexTables(ctx context.Context, tables []domain.Table) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return h.tables.Add(ctx, tables)
}

// RebuildKeywordIndex re-derives the keyword index from the chunk store.
// Repair operation for an index restored from a partial state.
func (h *Handle) RebuildKeywordIndex() {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.keywords.Rebuild(h.chunks.Snapshot())
}

func (h *Handle) Chunks() *ChunkStore     { return h.chunks }
func (h *Handle) Keywords() *KeywordIndex { return h.keywords }
func (h *Handle) Tables() *TableStore     { return h.tables }
