package ports

import (
	"context"
	"io"

	"veridoc/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveMetadata(ctx context.Context, id string, meta domain.DocumentMetadata) error
}

// ObjectStorage stores the raw uploaded documents. The core only carries the
// resulting source URI for provenance; bytes are re-read during processing
// only.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URI(key string) string
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PageExtractor extracts plain text per page from a stored document.
type PageExtractor interface {
	ExtractPages(ctx context.Context, doc *domain.Document) ([]string, error)
	ExtractMetadata(ctx context.Context, doc *domain.Document) (title, author string, err error)
}

// TableExtractor pulls structured tables out of a stored document for the
// TABLE reasoning path. Extractors that cannot produce tables return an
// empty slice.
type TableExtractor interface {
	ExtractTables(ctx context.Context, doc *domain.Document) ([]domain.Table, error)
}

// Embedder builds vectors for chunks and query text. Vectors have fixed
// dimensionality for a given model configuration.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits page texts into indexable chunks.
type Chunker interface {
	SplitPages(pages []string) []string
	SplitOversized(chunks []string, maxChars int) []string
}

// ChunkStore is the semantic index over normalized embedding vectors.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) (int, error)
	Search(ctx context.Context, queryVector []float32, topK int, allowedDocIDs []string) ([]domain.SearchHit, error)
}

// KeywordIndex is the lexical (BM25) index over the same chunk corpus.
type KeywordIndex interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, queryText string, topK int, allowedDocIDs []string) ([]domain.SearchHit, error)
}

// TableStore keeps structured tables captured at ingestion.
type TableStore interface {
	Add(ctx context.Context, tables []domain.Table) error
	ListByDocIDs(ctx context.Context, docIDs []string) ([]domain.Table, error)
}

// Indexer is the single write barrier over the chunk store, the keyword
// index, and the table store. Both text indexes are updated under one lock
// so they cannot diverge.
type Indexer interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error)
	IndexTables(ctx context.Context, tables []domain.Table) error
}

// AnswerGenerator wraps the text generation service. Outputs of the answer
// paths are cleaned of prompt-leakage artifacts before they are returned.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, contexts []string, temperature float64) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string, temperature float64) (string, error)
	CompressContext(ctx context.Context, question string, contexts []string) (string, error)
}
