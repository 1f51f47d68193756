package usecase

import (
	"context"
	"log/slog"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

const (
	msgNoDocuments      = "No documents are indexed yet. Upload a document before asking a question."
	msgGenerationFailed = "Could not synthesize an answer from the retrieved context."
)

// QueryConfig tunes the retrieval pipeline. Zero values fall back to the
// defaults the pipeline was calibrated with.
type QueryConfig struct {
	TopK              int
	CandidateLimit    int
	RRFK              int
	Temperature       float64
	RerankWeights     RerankWeights
	Complexity        ComplexityThresholds
	VerifyConcurrency int
}

func (c QueryConfig) withDefaults() QueryConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 25
	}
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	return c
}

// QueryUseCase answers a question over the indexed corpus: hybrid search,
// RRF fusion, reranking, context compression, generation, and claim
// verification. Complex questions detour through the orchestrator, which
// loops this same pipeline per sub-question.
type QueryUseCase struct {
	embedder     ports.Embedder
	chunks       ports.ChunkStore
	keywords     ports.KeywordIndex
	generator    ports.AnswerGenerator
	verifier     *VerifyAnswerUseCase
	orchestrator *orchestrator
	logger       *slog.Logger
	cfg          QueryConfig
}

func NewQueryUseCase(
	embedder ports.Embedder,
	chunks ports.ChunkStore,
	keywords ports.KeywordIndex,
	tables ports.TableStore,
	generator ports.AnswerGenerator,
	logger *slog.Logger,
	cfg QueryConfig,
) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	uc := &QueryUseCase{
		embedder:  embedder,
		chunks:    chunks,
		keywords:  keywords,
		generator: generator,
		verifier:  NewVerifyAnswerUseCase(generator, logger, cfg.VerifyConcurrency),
		logger:    logger,
		cfg:       cfg,
	}
	uc.orchestrator = newOrchestrator(generator, tables, uc, logger, cfg.Temperature)
	return uc
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, allowedDocIDs []string) (*domain.Answer, error) {
	if isComplexQuery(question, uc.cfg.Complexity) {
		uc.logger.Info("routing complex question through orchestrator")
		answer, err := uc.orchestrator.answerIteratively(ctx, question, allowedDocIDs)
		if err == nil {
			return answer, nil
		}
		uc.logger.Warn("orchestrator failed, falling back to direct retrieval", "error", err)
	}

	text, sources, hits, err := uc.answerSimple(ctx, question, allowedDocIDs)
	if err != nil {
		return nil, err
	}

	// The failure sentinel carries no claims worth checking; verifying it
	// would only spend generation calls on an error message.
	var verification []domain.VerificationResult
	if text != msgGenerationFailed {
		verification = uc.verifier.VerifyAnswer(ctx, text, hitTexts(hits))
	}

	return &domain.Answer{
		Text:         text,
		Sources:      dedupSources(sources),
		Verification: verification,
	}, nil
}

// answerSimple is the direct retrieval path. Sub-questions from the
// orchestrator come through here too, which is what keeps decomposition
// from recursing.
func (uc *QueryUseCase) answerSimple(ctx context.Context, question string, allowedDocIDs []string) (string, []string, []domain.SearchHit, error) {
	var semanticHits []domain.SearchHit
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		// Keyword search still works without the embedding.
		uc.logger.Warn("query embedding failed, degrading to keyword-only retrieval", "error", err)
	} else {
		semanticHits, err = uc.chunks.Search(ctx, queryVector, uc.cfg.CandidateLimit, allowedDocIDs)
		if err != nil {
			uc.logger.Warn("semantic search failed", "error", err)
			semanticHits = nil
		}
	}

	keywordHits, err := uc.keywords.Search(ctx, question, uc.cfg.CandidateLimit, allowedDocIDs)
	if err != nil {
		uc.logger.Warn("keyword search failed", "error", err)
		keywordHits = nil
	}

	fused := fuseHitsRRF(semanticHits, keywordHits, uc.cfg.RRFK)
	if len(fused) == 0 {
		return msgNoDocuments, nil, nil, nil
	}

	reranked := rerankHits(question, fused, uc.cfg.TopK, uc.cfg.RerankWeights)

	contexts := hitTexts(reranked)
	sources := make([]string, 0, len(reranked))
	for _, hit := range reranked {
		sources = append(sources, hit.SourceURI)
	}

	// Compression is best-effort: an empty or failed summary falls back to
	// the raw contexts.
	effectiveContexts := contexts
	if summary, err := uc.generator.CompressContext(ctx, question, contexts); err != nil {
		uc.logger.Warn("context compression failed, using raw contexts", "error", err)
	} else if summary != "" {
		effectiveContexts = []string{summary}
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, effectiveContexts, uc.cfg.Temperature)
	if err != nil {
		uc.logger.Warn("answer generation failed", "error", err)
		return msgGenerationFailed, sources, reranked, nil
	}

	return text, sources, reranked, nil
}

func hitTexts(hits []domain.SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.Text)
	}
	return out
}

// dedupSources keeps first-seen order.
func dedupSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, source := range sources {
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}
