package usecase

import (
	"testing"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func backlogSnapshot() *Snapshot {
	items := []domain.Item{
		{ID: "t1", Iteration: "Sprint 1", Status: domain.StatusDone, Assignees: []string{"Ana"}},
		{ID: "t2", Iteration: "Sprint 1", Status: domain.StatusDone, Assignees: []string{"Jorge"}},
		{ID: "t3", Iteration: "Sprint 2", Status: domain.StatusInProgress, Blocked: true, Priority: domain.PriorityHigh},
		{ID: "t4", Iteration: "Sprint 2", Status: domain.StatusTodo, Assignees: []string{"Ana", "Jorge"}},
		{ID: "t5", Iteration: "Sprint 3", Status: domain.StatusDone, Priority: domain.PriorityUrgent},
		{ID: "t6", Iteration: "Sprint 3", Status: domain.StatusInProgress},
		{ID: "t7", Iteration: "Sprint 3", Status: domain.StatusTodo},
		{ID: "t8", Iteration: "Sprint 3", Status: domain.StatusTodo, Blocked: true},
	}
	return NewSnapshot(items)
}

func TestCountOverFullFilteredSet(t *testing.T) {
	snapshot := backlogSnapshot()
	filter := domain.Filter{Iteration: "Sprint 3", Status: domain.StatusDone}

	if got := CountItems(snapshot, filter); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	if got, want := CountItems(snapshot, filter), len(snapshot.Filtered(filter)); got != want {
		t.Fatalf("count %d disagrees with full filtered length %d", got, want)
	}
}

func TestFilterMonotonicNarrowing(t *testing.T) {
	snapshot := backlogSnapshot()
	base := domain.Filter{Iteration: "Sprint 3"}
	narrowed := domain.Filter{Iteration: "Sprint 3", Status: domain.StatusTodo}
	narrowest := domain.Filter{Iteration: "Sprint 3", Status: domain.StatusTodo, Blocked: domain.BoolPtr(true)}

	a := CountItems(snapshot, base)
	b := CountItems(snapshot, narrowed)
	c := CountItems(snapshot, narrowest)
	if b > a || c > b {
		t.Fatalf("adding constraints grew the result set: %d, %d, %d", a, b, c)
	}
}

func TestGroupItemsOrdering(t *testing.T) {
	snapshot := backlogSnapshot()
	groups := GroupItems(snapshot, domain.GroupByIteration, domain.Filter{})

	if len(groups) != 3 {
		t.Fatalf("expected 3 iterations, got %d", len(groups))
	}
	if groups[0].Value != "Sprint 3" || groups[0].Count != 4 {
		t.Fatalf("expected Sprint 3 first with 4 items, got %+v", groups[0])
	}
	// Sprint 1 and Sprint 2 both have 2 items; ties break on value.
	if groups[1].Value != "Sprint 1" || groups[2].Value != "Sprint 2" {
		t.Fatalf("tie-break by value violated: %+v", groups)
	}
}

func TestGroupItemsMultiValuedAssignees(t *testing.T) {
	snapshot := backlogSnapshot()
	groups := GroupItems(snapshot, domain.GroupByAssignee, domain.Filter{})

	counts := make(map[string]int)
	for _, g := range groups {
		counts[g.Value] = g.Count
	}
	if counts["Ana"] != 2 || counts["Jorge"] != 2 {
		t.Fatalf("multi-assignee items should count once per assignee: %v", counts)
	}
	if counts["unassigned"] != 5 {
		t.Fatalf("expected 5 unassigned items, got %d", counts["unassigned"])
	}
}

func TestMetricsForIteration(t *testing.T) {
	snapshot := backlogSnapshot()
	metrics := MetricsFor(snapshot, "Sprint 3")

	if metrics.Total != 4 {
		t.Fatalf("total = %d, want 4", metrics.Total)
	}
	if metrics.CompletionRatio != 0.25 {
		t.Fatalf("completion ratio = %v, want 0.25", metrics.CompletionRatio)
	}
	if metrics.BlockedCount != 1 {
		t.Fatalf("blocked = %d, want 1", metrics.BlockedCount)
	}
	if metrics.HighPriorityCount != 1 {
		t.Fatalf("high priority = %d, want 1", metrics.HighPriorityCount)
	}
}

func TestMetricsForEmptyIterationNoDivideByZero(t *testing.T) {
	snapshot := backlogSnapshot()
	metrics := MetricsFor(snapshot, "Sprint 99")

	if metrics.Total != 0 {
		t.Fatalf("total = %d, want 0", metrics.Total)
	}
	if metrics.CompletionRatio != 0 {
		t.Fatalf("completion ratio must be exactly 0 for empty iteration, got %v", metrics.CompletionRatio)
	}
}

func TestCompareGroupsPreservesCallerOrder(t *testing.T) {
	snapshot := backlogSnapshot()
	rows := CompareGroups(snapshot, []string{"Sprint 2", "Sprint 1"})

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Group != "Sprint 2" || rows[1].Group != "Sprint 1" {
		t.Fatalf("caller group order not preserved: %+v", rows)
	}
	if rows[0].Total != 2 || rows[1].Total != 2 {
		t.Fatalf("unexpected totals: %+v", rows)
	}
}
