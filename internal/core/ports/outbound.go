package ports

import (
	"context"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// ItemIndex is the persistent store of item text and structured attributes.
// It is owned by the ingestion pipeline; the engine only reads from it.
type ItemIndex interface {
	// GetByFilter returns items matching the filter. limit <= 0 means no limit.
	GetByFilter(ctx context.Context, filter domain.Filter, limit int) ([]domain.Item, error)
	// VectorQuery returns the topN most similar items, restricted to
	// candidateIDs when non-empty.
	VectorQuery(ctx context.Context, vector []float32, candidateIDs []string, topN int) ([]domain.Similarity, error)
	// Count reports the number of indexed items, used for drift detection.
	Count(ctx context.Context) (int, error)
}

// Embedder builds the query vector for semantic search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores (query, item text) pairs; scores are returned in input order.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// IntentClassifier asks the language model for an intent label when no
// routing rule fires confidently.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, query string) (domain.IntentLabel, error)
}

// AnswerSynthesizer phrases the final answer from a context block: either
// retrieved item excerpts or a deterministic aggregate summary, never a raw
// corpus dump.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question, contextBlock string) (string, error)
}

// ConversationLog persists answered turns for audit. Failures are best-effort
// and never fail the user-facing answer.
type ConversationLog interface {
	AppendTurn(ctx context.Context, turn domain.ConversationTurn) error
}

// CorpusEvents delivers invalidation notifications published by the ingestion
// pipeline after a corpus rebuild.
type CorpusEvents interface {
	SubscribeRebuilt(ctx context.Context, handler func(context.Context) error) error
	Close()
}
