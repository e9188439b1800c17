package domain

// GroupAttribute selects which item attribute a grouping runs over.
type GroupAttribute string

const (
	GroupByIteration GroupAttribute = "iteration"
	GroupByStatus    GroupAttribute = "status"
	GroupByPriority  GroupAttribute = "priority"
	GroupByAssignee  GroupAttribute = "assignee"
	GroupByLabel     GroupAttribute = "label"
)

// GroupCount is one row of an ordered grouping result.
type GroupCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// IterationMetrics are deterministic per-iteration numbers computed over the
// complete filtered item set, never a retrieval slice.
type IterationMetrics struct {
	Iteration         string       `json:"iteration"`
	Total             int          `json:"total"`
	ByStatus          []GroupCount `json:"by_status"`
	CompletionRatio   float64      `json:"completion_ratio"`
	BlockedCount      int          `json:"blocked_count"`
	HighPriorityCount int          `json:"high_priority_count"`
}

// ComparisonRow is one group's counts inside a multi-group comparison, in the
// order the caller requested the groups.
type ComparisonRow struct {
	Group  string       `json:"group"`
	Total  int          `json:"total"`
	Counts []GroupCount `json:"counts"`
}
