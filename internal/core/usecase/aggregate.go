package usecase

import (
	"sort"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// The aggregate engine computes exact counts over the complete filtered item
// set. Retrieval top-K slices are never used here.

func CountItems(snapshot *Snapshot, filter domain.Filter) int {
	return len(snapshot.Filtered(filter))
}

// GroupItems counts items per distinct value of the attribute, ordered by
// count descending with the value as tie-break. Multi-valued attributes
// (assignees, labels) count the item once per value.
func GroupItems(snapshot *Snapshot, attribute domain.GroupAttribute, filter domain.Filter) []domain.GroupCount {
	counts := make(map[string]int)
	for _, item := range snapshot.Filtered(filter) {
		for _, value := range attributeValues(item, attribute) {
			counts[value]++
		}
	}

	out := make([]domain.GroupCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, domain.GroupCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// MetricsFor computes per-iteration numbers. completion_ratio is defined as 0
// when the iteration has no items.
func MetricsFor(snapshot *Snapshot, iteration string) domain.IterationMetrics {
	filter := domain.Filter{Iteration: iteration}
	items := snapshot.Filtered(filter)

	metrics := domain.IterationMetrics{
		Iteration: iteration,
		Total:     len(items),
		ByStatus:  GroupItems(snapshot, domain.GroupByStatus, filter),
	}

	done := 0
	for _, item := range items {
		if item.Status == domain.StatusDone {
			done++
		}
		if item.Blocked {
			metrics.BlockedCount++
		}
		if item.Priority == domain.PriorityUrgent || item.Priority == domain.PriorityHigh {
			metrics.HighPriorityCount++
		}
	}
	if metrics.Total > 0 {
		metrics.CompletionRatio = float64(done) / float64(metrics.Total)
	}
	return metrics
}

// CompareGroups runs one status grouping per named group and merges the
// results into a single table, preserving the caller's group order.
func CompareGroups(snapshot *Snapshot, groups []string) []domain.ComparisonRow {
	out := make([]domain.ComparisonRow, 0, len(groups))
	for _, group := range groups {
		filter := domain.Filter{Iteration: group}
		out = append(out, domain.ComparisonRow{
			Group:  group,
			Total:  CountItems(snapshot, filter),
			Counts: GroupItems(snapshot, domain.GroupByStatus, filter),
		})
	}
	return out
}

func attributeValues(item domain.Item, attribute domain.GroupAttribute) []string {
	switch attribute {
	case domain.GroupByIteration:
		return singleValue(item.Iteration)
	case domain.GroupByStatus:
		return singleValue(string(item.Status))
	case domain.GroupByPriority:
		return singleValue(string(item.Priority))
	case domain.GroupByAssignee:
		if len(item.Assignees) == 0 {
			return []string{"unassigned"}
		}
		return item.Assignees
	case domain.GroupByLabel:
		return item.Labels
	default:
		return nil
	}
}

func singleValue(v string) []string {
	if v == "" {
		return []string{"unspecified"}
	}
	return []string{v}
}
