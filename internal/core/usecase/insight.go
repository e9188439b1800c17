package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// InsightUseCase exposes the aggregate engine and the retrieval path to
// programmatic callers (reports, API clients) without the answer pipeline.
type InsightUseCase struct {
	snapshots *SnapshotHolder
	retriever *RetrieveUseCase
}

func NewInsightUseCase(snapshots *SnapshotHolder, retriever *RetrieveUseCase) *InsightUseCase {
	return &InsightUseCase{snapshots: snapshots, retriever: retriever}
}

func (uc *InsightUseCase) Count(ctx context.Context, filter domain.Filter) (int, error) {
	snapshot, err := uc.snapshots.EnsureFresh(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure snapshot: %w", err)
	}
	return CountItems(snapshot, filter), nil
}

func (uc *InsightUseCase) GroupBy(ctx context.Context, attribute domain.GroupAttribute, filter domain.Filter) ([]domain.GroupCount, error) {
	snapshot, err := uc.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure snapshot: %w", err)
	}
	return GroupItems(snapshot, attribute, filter), nil
}

func (uc *InsightUseCase) IterationMetrics(ctx context.Context, iteration string) (*domain.IterationMetrics, error) {
	if iteration == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "iteration metrics", fmt.Errorf("iteration is required"))
	}
	snapshot, err := uc.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure snapshot: %w", err)
	}
	metrics := MetricsFor(snapshot, iteration)
	return &metrics, nil
}

func (uc *InsightUseCase) Retrieve(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.RetrievedItem, error) {
	snapshot, err := uc.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure snapshot: %w", err)
	}
	items, _, err := uc.retriever.Retrieve(ctx, snapshot, query, filter, topK)
	return items, err
}
