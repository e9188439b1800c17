package domain

import "strings"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Item is one work unit from the backlog corpus. Items are immutable
// snapshots produced by the ingestion pipeline; the engine only reads them.
type Item struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Iteration       string   `json:"iteration"`
	Status          Status   `json:"status"`
	Priority        Priority `json:"priority"`
	Assignees       []string `json:"assignees,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	Blocked         bool     `json:"blocked"`
	HasOpenComments bool     `json:"has_open_comments"`
	HasSubitems     bool     `json:"has_subitems"`
	SubitemsTotal   int      `json:"subitems_total"`
	SubitemsDone    int      `json:"subitems_done"`
}

// Filter is a conjunction of exact-match and boolean constraints over Item
// attributes. Zero values mean "no constraint"; boolean flags use pointers so
// an explicit false is distinguishable from unset.
type Filter struct {
	Iteration       string
	Status          Status
	Priority        Priority
	Assignee        string
	Label           string
	Blocked         *bool
	HasOpenComments *bool
	HasSubitems     *bool
}

func (f Filter) IsEmpty() bool {
	return f.Iteration == "" &&
		f.Status == "" &&
		f.Priority == "" &&
		f.Assignee == "" &&
		f.Label == "" &&
		f.Blocked == nil &&
		f.HasOpenComments == nil &&
		f.HasSubitems == nil
}

// Matches reports whether the item satisfies every constraint in the filter.
// Adding constraints can only shrink the matched set.
func (f Filter) Matches(item Item) bool {
	if f.Iteration != "" && !strings.EqualFold(f.Iteration, item.Iteration) {
		return false
	}
	if f.Status != "" && f.Status != item.Status {
		return false
	}
	if f.Priority != "" && f.Priority != item.Priority {
		return false
	}
	if f.Assignee != "" && !containsFold(item.Assignees, f.Assignee) {
		return false
	}
	if f.Label != "" && !containsFold(item.Labels, f.Label) {
		return false
	}
	if f.Blocked != nil && *f.Blocked != item.Blocked {
		return false
	}
	if f.HasOpenComments != nil && *f.HasOpenComments != item.HasOpenComments {
		return false
	}
	if f.HasSubitems != nil && *f.HasSubitems != item.HasSubitems {
		return false
	}
	return true
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func BoolPtr(v bool) *bool { return &v }
