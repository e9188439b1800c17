package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/backlog-assistant/internal/config"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
	"github.com/kirillkom/backlog-assistant/internal/core/usecase"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/rerank/tei"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/backlog-assistant/internal/observability/logging"
	"github.com/kirillkom/backlog-assistant/internal/observability/metrics"
)

const serviceName = "backlog-assistant"

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.ServerMetrics

	AnswerUC  ports.AnswerService
	Insight   *usecase.InsightUseCase
	Refresher ports.SnapshotRefresher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	serverMetrics := metrics.NewServerMetrics(serviceName)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	turnRepo := postgres.NewTurnRepository(db)
	if err := turnRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	events, err := nats.New(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, fmt.Errorf("init corpus events: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor, cfg.OllamaRPS)
	embedder := ollama.NewEmbedder(ollamaClient)
	synthesizer := ollama.NewSynthesizer(ollamaClient)
	classifier := ollama.NewClassifier(ollamaClient)

	index := qdrant.NewIndex(cfg.QdrantURL, cfg.QdrantCollection)
	reranker := tei.New(cfg.RerankURL, executor)

	holder := usecase.NewSnapshotHolder(index, logger, time.Duration(cfg.SnapshotCheckSeconds)*time.Second)

	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	currentIteration := cfg.CurrentIteration
	if currentIteration == "" {
		currentIteration = roster.CurrentIteration
	}
	members := make([]usecase.RosterMember, 0, len(roster.Assignees))
	for _, entry := range roster.Assignees {
		members = append(members, usecase.RosterMember{Name: entry.Name, Aliases: entry.Aliases})
	}
	extractor := usecase.NewFilterExtractor(currentIteration, members)

	router := usecase.NewRouter(classifier, cfg.IntentConfidenceThreshold, logger)
	retriever := usecase.NewRetrieveUseCase(index, embedder, reranker, cfg.EmbedCacheSize, usecase.RetrievalConfig{
		TopK:           cfg.TopK,
		CandidateLimit: cfg.CandidateLimit,
		SemanticWeight: cfg.SemanticWeight,
		LexicalWeight:  cfg.LexicalWeight,
		RerankTopN:     cfg.RerankTopN,
	}, logger)

	answerUC := usecase.NewAnswerUseCase(
		holder,
		extractor,
		router,
		retriever,
		synthesizer,
		usecase.NewTrackerRegistry(cfg.ContextWindow),
		turnRepo,
		serverMetrics,
		logger,
		time.Duration(cfg.AnswerTimeoutSeconds)*time.Second,
	)
	insight := usecase.NewInsightUseCase(holder, retriever)

	// Serve from a snapshot right away when the index is reachable; the first
	// request rebuilds otherwise.
	if err := holder.Rebuild(ctx); err != nil {
		logger.Warn("initial_snapshot_rebuild_failed", "error", err)
	} else {
		serverMetrics.ObserveSnapshotRebuild(holder.Current().Len())
	}

	if err := events.SubscribeRebuilt(ctx, func(ctx context.Context) error {
		if err := holder.Rebuild(ctx); err != nil {
			return err
		}
		serverMetrics.ObserveSnapshotRebuild(holder.Current().Len())
		return nil
	}); err != nil {
		logger.Warn("corpus_event_subscription_failed", "error", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: serverMetrics,

		AnswerUC:  answerUC,
		Insight:   insight,
		Refresher: holder,

		closeFn: func() {
			events.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
