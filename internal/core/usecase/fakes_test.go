package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"veridoc/internal/core/domain"
)

type generatorFake struct {
	mu sync.Mutex

	answerText string
	answerErr  error

	compressText string
	compressErr  error

	promptFn func(prompt string) (string, error)

	answerCalls  int
	prompts      []string
	lastContexts []string
}

func (f *generatorFake) GenerateAnswer(_ context.Context, _ string, contexts []string, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerCalls++
	f.lastContexts = contexts
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answerText, nil
}

func (f *generatorFake) GenerateFromPrompt(_ context.Context, prompt string, _ float64) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	fn := f.promptFn
	f.mu.Unlock()
	if fn != nil {
		return fn(prompt)
	}
	return "", nil
}

func (f *generatorFake) CompressContext(_ context.Context, _ string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.compressErr != nil {
		return "", f.compressErr
	}
	return f.compressText, nil
}

func (f *generatorFake) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type chunkStoreFake struct {
	hits []domain.SearchHit
	err  error

	topK     int
	filtered []string
}

func (f *chunkStoreFake) Upsert(_ context.Context, chunks []domain.Chunk) (int, error) {
	return len(chunks), nil
}

func (f *chunkStoreFake) Search(_ context.Context, _ []float32, topK int, allowedDocIDs []string) ([]domain.SearchHit, error) {
	f.topK = topK
	f.filtered = allowedDocIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type keywordIndexFake struct {
	hits []domain.SearchHit
	err  error
}

func (f *keywordIndexFake) Add(context.Context, []domain.Chunk) error { return nil }

func (f *keywordIndexFake) Search(_ context.Context, _ string, _ int, _ []string) ([]domain.SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type tableStoreFake struct {
	tables []domain.Table
}

func (f *tableStoreFake) Add(context.Context, []domain.Table) error { return nil }

func (f *tableStoreFake) ListByDocIDs(_ context.Context, docIDs []string) ([]domain.Table, error) {
	if len(docIDs) == 0 {
		return f.tables, nil
	}
	allowed := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = struct{}{}
	}
	var out []domain.Table
	for _, table := range f.tables {
		if _, ok := allowed[table.DocID]; ok {
			out = append(out, table)
		}
	}
	return out, nil
}

type embedderFake struct {
	queryVector []float32
	queryErr    error

	// tooLongTimes makes the first N Embed calls fail with ErrInputTooLong.
	tooLongTimes int
	embedErr     error
	batches      [][]string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.tooLongTimes > 0 {
		f.tooLongTimes--
		return nil, domain.WrapError(domain.ErrInputTooLong, "embed", errors.New("token sequence length exceeds maximum"))
	}
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{1, 0}, nil
}

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type repoFake struct {
	doc       *domain.Document
	getErr    error
	saveErr   error
	statusErr error

	statusCalls []statusCall
	savedMeta   domain.DocumentMetadata
	savedID     string
	created     []*domain.Document
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	f.created = append(f.created, doc)
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *repoFake) SaveMetadata(_ context.Context, id string, meta domain.DocumentMetadata) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedID = id
	f.savedMeta = meta
	return nil
}

type storageFake struct {
	savedKeys []string
	saveErr   error
}

func (f *storageFake) Save(_ context.Context, key string, _ io.Reader) error {
	f.savedKeys = append(f.savedKeys, key)
	return f.saveErr
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *storageFake) URI(key string) string { return "file:///storage/" + key }

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

// chunkerFake keeps non-empty pages as whole chunks and splits oversized
// texts at fixed rune boundaries.
type chunkerFake struct{}

func (chunkerFake) SplitPages(pages []string) []string {
	var out []string
	for _, page := range pages {
		page = strings.TrimSpace(page)
		if page != "" {
			out = append(out, page)
		}
	}
	return out
}

func (chunkerFake) SplitOversized(chunks []string, maxChars int) []string {
	var out []string
	for _, chunk := range chunks {
		runes := []rune(chunk)
		for len(runes) > maxChars {
			out = append(out, string(runes[:maxChars]))
			runes = runes[maxChars:]
		}
		if len(runes) > 0 {
			out = append(out, string(runes))
		}
	}
	return out
}

type indexerFake struct {
	chunks    []domain.Chunk
	tables    []domain.Table
	chunksErr error
}

func (f *indexerFake) IndexChunks(_ context.Context, chunks []domain.Chunk) (int, error) {
	if f.chunksErr != nil {
		return 0, f.chunksErr
	}
	f.chunks = append(f.chunks, chunks...)
	return len(chunks), nil
}

func (f *indexerFake) IndexTables(_ context.Context, tables []domain.Table) error {
	f.tables = append(f.tables, tables...)
	return nil
}

type pageExtractorFake struct {
	pages  []string
	title  string
	author string
	err    error
}

func (f *pageExtractorFake) ExtractPages(context.Context, *domain.Document) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func (f *pageExtractorFake) ExtractMetadata(context.Context, *domain.Document) (string, string, error) {
	return f.title, f.author, nil
}

type tableExtractorFake struct {
	tables []domain.Table
}

func (f *tableExtractorFake) ExtractTables(context.Context, *domain.Document) ([]domain.Table, error) {
	return f.tables, nil
}
