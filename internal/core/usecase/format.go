package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// describeFilter phrases a filter for deterministic count answers, e.g.
// "done tasks in Sprint 3 assigned to Jorge".
func describeFilter(filter domain.Filter) string {
	parts := []string{}
	if filter.Blocked != nil && *filter.Blocked {
		parts = append(parts, "blocked")
	}
	if filter.Priority != "" {
		parts = append(parts, string(filter.Priority))
	}
	if filter.Status != "" {
		parts = append(parts, statusAdjective(filter.Status))
	}
	parts = append(parts, "tasks")
	if filter.Label != "" {
		parts = append(parts, "labeled "+filter.Label)
	}
	if filter.Iteration != "" {
		parts = append(parts, "in "+filter.Iteration)
	}
	if filter.Assignee != "" {
		parts = append(parts, "assigned to "+filter.Assignee)
	}
	if filter.HasOpenComments != nil && *filter.HasOpenComments {
		parts = append(parts, "with open comments")
	}
	if filter.HasSubitems != nil && *filter.HasSubitems {
		parts = append(parts, "with subitems")
	}
	return strings.Join(parts, " ")
}

func statusAdjective(status domain.Status) string {
	switch status {
	case domain.StatusDone:
		return "completed"
	case domain.StatusInProgress:
		return "in-progress"
	case domain.StatusTodo:
		return "pending"
	default:
		return string(status)
	}
}

func singularize(description string) string {
	return strings.Replace(description, "tasks", "task", 1)
}

func pluralVerb(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}

func itemHeadline(item domain.Item) string {
	title := item.Text
	if idx := strings.IndexByte(title, '\n'); idx > 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if len(title) > 120 {
		title = strings.TrimSpace(title[:120]) + "..."
	}
	return fmt.Sprintf("[%s] %s", item.ID, title)
}

// groupSummaryBlock is the compact structured summary handed to the language
// model on delegation: exact counts per distinct value, never raw item text.
func groupSummaryBlock(attribute domain.GroupAttribute, groups []domain.GroupCount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distinct %s values across all items (%d total):\n", attribute, len(groups))
	for _, group := range groups {
		fmt.Fprintf(&b, "- %s: %d items\n", group.Value, group.Count)
	}
	b.WriteString("Answer using only these exact numbers.")
	return b.String()
}

func deterministicGroupAnswer(attribute domain.GroupAttribute, groups []domain.GroupCount) string {
	noun := string(attribute)
	if attribute == domain.GroupByIteration {
		noun = "sprint"
	}
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		parts = append(parts, fmt.Sprintf("%s (%d)", group.Value, group.Count))
	}
	return fmt.Sprintf("There are %d distinct %ss: %s.", len(groups), noun, strings.Join(parts, ", "))
}

func comparisonBlock(rows []domain.ComparisonRow) string {
	var b strings.Builder
	b.WriteString("Comparison of iterations (exact counts):\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %d items", row.Group, row.Total)
		for _, count := range row.Counts {
			fmt.Fprintf(&b, ", %s=%d", count.Value, count.Count)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func metricsBlock(metrics domain.IterationMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d items, %.0f%% complete, %d blocked, %d high priority.\n",
		metrics.Iteration, metrics.Total, metrics.CompletionRatio*100, metrics.BlockedCount, metrics.HighPriorityCount)
	for _, count := range metrics.ByStatus {
		fmt.Fprintf(&b, "- %s: %d\n", count.Value, count.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sourcesBlock formats retrieved items with their attributes as the context
// block for synthesis.
func sourcesBlock(items []domain.RetrievedItem) string {
	var b strings.Builder
	for i, retrieved := range items {
		item := retrieved.Item
		fmt.Fprintf(&b, "[%d] id=%s iteration=%s status=%s priority=%s assignees=%s score=%.3f\n%s\n\n",
			i+1,
			item.ID,
			orDash(item.Iteration),
			orDash(string(item.Status)),
			orDash(string(item.Priority)),
			orDash(strings.Join(item.Assignees, ",")),
			retrieved.FusedScore,
			strings.TrimSpace(item.Text),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func detailBlock(item domain.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", itemHeadline(item))
	fmt.Fprintf(&b, "Iteration: %s | Status: %s | Priority: %s\n",
		orDash(item.Iteration), orDash(string(item.Status)), orDash(string(item.Priority)))
	fmt.Fprintf(&b, "Assignees: %s | Labels: %s\n",
		orDash(strings.Join(item.Assignees, ", ")), orDash(strings.Join(item.Labels, ", ")))
	if item.Blocked {
		b.WriteString("This task is currently blocked.\n")
	}
	if item.HasSubitems {
		fmt.Fprintf(&b, "Subitems: %d of %d done.\n", item.SubitemsDone, item.SubitemsTotal)
	}
	if item.HasOpenComments {
		b.WriteString("There are open comments on this task.\n")
	}
	fmt.Fprintf(&b, "\n%s", strings.TrimSpace(item.Text))
	return b.String()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

var iterationMentionRe = regexp.MustCompile(`(?i)\b(?:sprint|iteration)\s*#?\s*(\d+)\b`)

// iterationMentions returns every iteration named in the question, in the
// order mentioned, without duplicates.
func iterationMentions(question string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range iterationMentionRe.FindAllStringSubmatch(question, -1) {
		name := "Sprint " + m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
