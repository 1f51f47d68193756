package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"veridoc/internal/config"
	"veridoc/internal/core/ports"
	"veridoc/internal/core/usecase"
	"veridoc/internal/infrastructure/chunking"
	"veridoc/internal/infrastructure/extractor/pdf"
	"veridoc/internal/infrastructure/extractor/plaintext"
	"veridoc/internal/infrastructure/extractor/xlsx"
	"veridoc/internal/infrastructure/index"
	"veridoc/internal/infrastructure/llm/ollama"
	"veridoc/internal/infrastructure/queue/nats"
	"veridoc/internal/infrastructure/repository/postgres"
	"veridoc/internal/infrastructure/resilience"
	"veridoc/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Index     *index.Handle
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.DocumentQueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		MaxCallsPerSecond: cfg.LLMMaxCallsPerSecond,
		CallTimeout:       time.Duration(cfg.LLMCallTimeoutSecs) * time.Second,
		Executor:          executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	indexHandle := index.NewHandle()
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	sheets := xlsx.NewExtractor(storage)
	extractors := usecase.ExtractorSet{
		PDF:    pdf.NewExtractor(storage),
		Plain:  plaintext.NewExtractor(storage),
		Sheets: sheets,
		Tables: sheets,
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, extractors, chunker, embedder, indexHandle, logger)
	queryUC := usecase.NewQueryUseCase(
		embedder,
		indexHandle.Chunks(),
		indexHandle.Keywords(),
		indexHandle.Tables(),
		generator,
		logger,
		usecase.QueryConfig{
			TopK:           cfg.RAGTopK,
			CandidateLimit: cfg.RAGHybridCandidates,
			RRFK:           cfg.RAGFusionRRFK,
			Temperature:    cfg.GenTemperature,
			RerankWeights: usecase.RerankWeights{
				Semantic: cfg.RerankWeightSemantic,
				Jaccard:  cfg.RerankWeightOverlap,
				BM25:     cfg.RerankWeightBM25,
				Phrase:   cfg.RerankWeightPhrase,
			},
			Complexity: usecase.ComplexityThresholds{
				MinQuestionWords:  cfg.ComplexityMinQuestionWords,
				MinIndicators:     cfg.ComplexityMinIndicators,
				LongQuestionChars: cfg.ComplexityLongQuestionChars,
			},
			VerifyConcurrency: cfg.VerifyConcurrency,
		},
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Repo:  repo,
		Index: indexHandle,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
