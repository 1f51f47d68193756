package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

const (
	embedSafeChars    = 500
	embedFloorChars   = 400
	embedMaxRetries   = 2
	embedShrinkFactor = 0.8
)

// ExtractorSet maps a document to its page and table extractors by file
// type. Plain is the fallback for anything unrecognized.
type ExtractorSet struct {
	PDF    ports.PageExtractor
	Plain  ports.PageExtractor
	Sheets ports.PageExtractor
	Tables ports.TableExtractor
}

func (s ExtractorSet) forDocument(doc *domain.Document) (ports.PageExtractor, ports.TableExtractor) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	switch {
	case ext == ".pdf" || doc.MimeType == "application/pdf":
		return s.PDF, nil
	case ext == ".xlsx" || ext == ".xls" ||
		doc.MimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return s.Sheets, s.Tables
	default:
		return s.Plain, nil
	}
}

// ProcessDocumentUseCase runs the ingestion pipeline for one document:
// extract pages and tables, chunk, embed, index, persist metadata. Any
// pipeline failure flips the document to failed with the error recorded.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	extractors ExtractorSet
	chunker    ports.Chunker
	embedder   ports.Embedder
	indexer    ports.Indexer
	logger     *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractors ExtractorSet,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.Indexer,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		storage:    storage,
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		indexer:    indexer,
		logger:     logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	meta, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveMetadata(ctx, documentID, meta); err != nil {
		err = fmt.Errorf("save document metadata: %w", err)
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (domain.DocumentMetadata, error) {
	var meta domain.DocumentMetadata

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return meta, fmt.Errorf("fetch document by id: %w", err)
	}

	pageExtractor, tableExtractor := uc.extractors.forDocument(doc)

	pages, err := pageExtractor.ExtractPages(ctx, doc)
	if err != nil {
		return meta, fmt.Errorf("extract pages: %w", err)
	}
	if allPagesEmpty(pages) {
		return meta, domain.WrapError(domain.ErrInvalidInput, "extract pages", errors.New("no text extracted"))
	}
	meta.PageCount = len(pages)

	// Title/author are nice-to-have; a document without them still indexes.
	title, author, err := pageExtractor.ExtractMetadata(ctx, doc)
	if err != nil {
		uc.logger.Warn("metadata extraction failed", "doc_id", doc.ID, "error", err)
	}
	meta.Title = title
	meta.Author = author

	var tables []domain.Table
	if tableExtractor != nil {
		tables, err = tableExtractor.ExtractTables(ctx, doc)
		if err != nil {
			uc.logger.Warn("table extraction failed", "doc_id", doc.ID, "error", err)
			tables = nil
		}
	}
	meta.TableCount = len(tables)

	texts, pageNums := uc.chunkPages(pages)
	if len(texts) == 0 {
		return meta, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	texts, pageNums, vectors, err := uc.embedWithRetry(ctx, texts, pageNums)
	if err != nil {
		return meta, err
	}

	chunks := uc.buildChunks(doc, texts, pageNums, vectors)

	count, err := uc.indexer.IndexChunks(ctx, chunks)
	if err != nil {
		return meta, fmt.Errorf("index chunks: %w", err)
	}
	meta.ChunkCount = count

	if len(tables) > 0 {
		if err := uc.indexer.IndexTables(ctx, tables); err != nil {
			return meta, fmt.Errorf("index tables: %w", err)
		}
	}

	uc.logger.Info("document processed",
		"doc_id", doc.ID,
		"pages", meta.PageCount,
		"chunks", meta.ChunkCount,
		"tables", meta.TableCount,
	)
	return meta, nil
}

// chunkPages splits page by page so every chunk keeps its page number.
func (uc *ProcessDocumentUseCase) chunkPages(pages []string) ([]string, []int) {
	var texts []string
	var pageNums []int
	for i, page := range pages {
		for _, text := range uc.chunker.SplitPages([]string{page}) {
			texts = append(texts, text)
			pageNums = append(pageNums, i+1)
		}
	}
	return texts, pageNums
}

// embedWithRetry embeds the chunk texts, re-chunking smaller whenever the
// embedding service rejects an input for its token window. Each retry
// shrinks the ceiling 20%; the last resort re-splits at a conservative
// fixed ceiling before giving up.
func (uc *ProcessDocumentUseCase) embedWithRetry(ctx context.Context, texts []string, pageNums []int) ([]string, []int, [][]float32, error) {
	limit := embedSafeChars
	texts, pageNums = uc.resplit(texts, pageNums, limit)

	for attempt := 0; ; attempt++ {
		if len(texts) == 0 {
			return nil, nil, nil, domain.WrapError(domain.ErrInvalidInput, "embed chunks", errors.New("no chunks to embed"))
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, nil, nil, domain.WrapError(
					domain.ErrInvalidInput,
					"embed chunks",
					fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
				)
			}
			return texts, pageNums, vectors, nil
		}
		if !domain.IsKind(err, domain.ErrInputTooLong) {
			return nil, nil, nil, fmt.Errorf("embed chunks: %w", err)
		}

		if attempt < embedMaxRetries {
			limit = int(float64(limit) * embedShrinkFactor)
			uc.logger.Warn("token limit hit, re-chunking smaller",
				"attempt", attempt+1,
				"max_chars", limit,
			)
			texts, pageNums = uc.resplit(texts, pageNums, limit)
			continue
		}

		uc.logger.Warn("final embed retry with conservative chunk size", "max_chars", embedFloorChars)
		texts, pageNums = uc.resplit(texts, pageNums, embedFloorChars)
		vectors, err = uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("embed chunks: %w", err)
		}
		return texts, pageNums, vectors, nil
	}
}

// resplit re-splits each oversized text individually so page attribution
// survives the split.
func (uc *ProcessDocumentUseCase) resplit(texts []string, pageNums []int, maxChars int) ([]string, []int) {
	outTexts := make([]string, 0, len(texts))
	outPages := make([]int, 0, len(pageNums))
	for i, text := range texts {
		for _, part := range uc.chunker.SplitOversized([]string{text}, maxChars) {
			outTexts = append(outTexts, part)
			outPages = append(outPages, pageNums[i])
		}
	}
	return outTexts, outPages
}

func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, texts []string, pageNums []int, vectors [][]float32) []domain.Chunk {
	sourceURI := uc.storage.URI(doc.StoragePath)
	chunks := make([]domain.Chunk, len(texts))
	for i := range texts {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocID:      doc.ID,
			PageNum:    pageNums[i],
			ChunkIndex: i,
			Text:       texts[i],
			Embedding:  vectors[i],
			SourceURI:  sourceURI,
		}
	}
	return chunks
}

func allPagesEmpty(pages []string) bool {
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			return false
		}
	}
	return true
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
