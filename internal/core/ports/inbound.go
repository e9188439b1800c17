package ports

import (
	"context"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// AnswerService is the single entry point exposed to the presentation layer.
type AnswerService interface {
	Answer(ctx context.Context, question, conversationID string) (*domain.Answer, error)
}

// ItemRetriever is the programmatic retrieval surface for report callers.
type ItemRetriever interface {
	Retrieve(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.RetrievedItem, error)
}

// AggregateReader exposes deterministic aggregates for programmatic callers.
type AggregateReader interface {
	Count(ctx context.Context, filter domain.Filter) (int, error)
	GroupBy(ctx context.Context, attribute domain.GroupAttribute, filter domain.Filter) ([]domain.GroupCount, error)
	IterationMetrics(ctx context.Context, iteration string) (*domain.IterationMetrics, error)
}

// SnapshotRefresher forces a corpus snapshot rebuild.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) error
}
