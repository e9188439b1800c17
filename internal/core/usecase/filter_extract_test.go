package usecase

import (
	"testing"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func sprintSnapshot() *Snapshot {
	return NewSnapshot([]domain.Item{
		{ID: "t1", Text: "setup repo", Iteration: "Sprint 1", Status: domain.StatusDone},
		{ID: "t2", Text: "login page", Iteration: "Sprint 2", Status: domain.StatusInProgress},
		{ID: "t3", Text: "billing export", Iteration: "Sprint 3", Status: domain.StatusTodo},
	})
}

func TestExtractIterationAndStatus(t *testing.T) {
	extractor := NewFilterExtractor("", nil)
	filter, _ := extractor.Extract("how many completed tasks in sprint 3", sprintSnapshot())

	if filter.Iteration != "Sprint 3" {
		t.Fatalf("iteration = %q, want Sprint 3", filter.Iteration)
	}
	if filter.Status != domain.StatusDone {
		t.Fatalf("status = %q, want done", filter.Status)
	}
}

func TestExtractCurrentIterationConfigured(t *testing.T) {
	extractor := NewFilterExtractor("Sprint 9", nil)
	filter, _ := extractor.Extract("blocked tasks in the current sprint", sprintSnapshot())

	if filter.Iteration != "Sprint 9" {
		t.Fatalf("iteration = %q, want configured Sprint 9", filter.Iteration)
	}
	if filter.Blocked == nil || !*filter.Blocked {
		t.Fatalf("expected blocked flag set")
	}
}

func TestExtractCurrentIterationFallsBackToHighest(t *testing.T) {
	extractor := NewFilterExtractor("", nil)
	filter, _ := extractor.Extract("what is in the current iteration", sprintSnapshot())
	if filter.Iteration != "Sprint 3" {
		t.Fatalf("iteration = %q, want highest-numbered Sprint 3", filter.Iteration)
	}
}

func TestExtractPreviousIteration(t *testing.T) {
	extractor := NewFilterExtractor("Sprint 3", nil)
	filter, _ := extractor.Extract("pending tasks from the last sprint", sprintSnapshot())
	if filter.Iteration != "Sprint 2" {
		t.Fatalf("iteration = %q, want Sprint 2", filter.Iteration)
	}
	if filter.Status != domain.StatusTodo {
		t.Fatalf("status = %q, want todo", filter.Status)
	}
}

func TestExtractAssigneeFromRoster(t *testing.T) {
	roster := []RosterMember{{Name: "Jorge", Aliases: []string{"george"}}}
	extractor := NewFilterExtractor("", roster)

	filter, _ := extractor.Extract("tasks for george with open comments", sprintSnapshot())
	if filter.Assignee != "Jorge" {
		t.Fatalf("assignee = %q, want canonical Jorge", filter.Assignee)
	}
	if filter.HasOpenComments == nil || !*filter.HasOpenComments {
		t.Fatalf("expected open-comments flag set")
	}
}

func TestExtractIsConservative(t *testing.T) {
	extractor := NewFilterExtractor("", []RosterMember{{Name: "Jorge"}})
	filter, residual := extractor.Extract("what did the team deliver for the payment flow", sprintSnapshot())

	if !filter.IsEmpty() {
		t.Fatalf("expected empty filter for unmatched phrases, got %+v", filter)
	}
	if residual == "" {
		t.Fatalf("residual query must survive for semantic search")
	}
}

func TestExtractLabel(t *testing.T) {
	extractor := NewFilterExtractor("", nil)
	filter, _ := extractor.Extract("urgent tasks tagged backend", sprintSnapshot())
	if filter.Label != "backend" {
		t.Fatalf("label = %q, want backend", filter.Label)
	}
	if filter.Priority != domain.PriorityUrgent {
		t.Fatalf("priority = %q, want urgent", filter.Priority)
	}
}

func TestEmptyResidualDetection(t *testing.T) {
	if !emptyResidual("show me the tasks in") {
		t.Fatalf("glue-only residual should count as empty")
	}
	if emptyResidual("payment gateway errors") {
		t.Fatalf("content-bearing residual should not count as empty")
	}
}
