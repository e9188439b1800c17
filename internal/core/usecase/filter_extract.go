package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// RosterMember is one known assignee with the aliases a question may use.
type RosterMember struct {
	Name    string
	Aliases []string
}

// FilterExtractor turns free-text filter phrases into a Filter plus the
// residual semantic query. Rules require a clear lexical trigger: a missed
// filter only degrades to semantic ranking, but a wrong filter silently
// empties the result set, so there is no fuzzy matching here.
type FilterExtractor struct {
	currentIteration string
	roster           []rosterPattern
}

type rosterPattern struct {
	name    string
	pattern *regexp.Regexp
}

var (
	iterationRe = regexp.MustCompile(`(?i)\b(?:sprint|iteration)\s*#?\s*(\d+)\b`)
	currentRe   = regexp.MustCompile(`(?i)\b(?:current|this|active)\s+(?:sprint|iteration)\b`)
	previousRe  = regexp.MustCompile(`(?i)\b(?:last|previous)\s+(?:sprint|iteration)\b`)
	labelRe     = regexp.MustCompile(`(?i)\b(?:labeled|labelled|tagged)\s+"?([a-z0-9][a-z0-9_-]*)"?`)
	numberRe    = regexp.MustCompile(`(\d+)`)
)

// statusRules and the other phrase tables are evaluated in order; the first
// trigger wins for its attribute.
var statusRules = []struct {
	pattern *regexp.Regexp
	status  domain.Status
}{
	{regexp.MustCompile(`(?i)\b(?:done|completed|finished|closed|resolved)\b`), domain.StatusDone},
	{regexp.MustCompile(`(?i)\b(?:in progress|ongoing|underway|being worked on|active tasks)\b`), domain.StatusInProgress},
	{regexp.MustCompile(`(?i)\b(?:to do|todo|pending|not started|backlog tasks)\b`), domain.StatusTodo},
}

var priorityRules = []struct {
	pattern  *regexp.Regexp
	priority domain.Priority
}{
	{regexp.MustCompile(`(?i)\b(?:urgent|critical)\b`), domain.PriorityUrgent},
	{regexp.MustCompile(`(?i)\bhigh[ -]priority\b|\bpriority high\b`), domain.PriorityHigh},
	{regexp.MustCompile(`(?i)\blow[ -]priority\b|\bpriority low\b`), domain.PriorityLow},
}

var flagRules = []struct {
	pattern *regexp.Regexp
	apply   func(*domain.Filter)
}{
	{regexp.MustCompile(`(?i)\b(?:blocked|stuck|impeded)\b`), func(f *domain.Filter) { f.Blocked = domain.BoolPtr(true) }},
	{regexp.MustCompile(`(?i)\b(?:with|has|have)\s+(?:open\s+)?comments\b|\bopen comments\b`), func(f *domain.Filter) { f.HasOpenComments = domain.BoolPtr(true) }},
	{regexp.MustCompile(`(?i)\b(?:with|has|have)\s+(?:open\s+)?sub(?:tasks|items)\b`), func(f *domain.Filter) { f.HasSubitems = domain.BoolPtr(true) }},
}

func NewFilterExtractor(currentIteration string, roster []RosterMember) *FilterExtractor {
	patterns := make([]rosterPattern, 0, len(roster))
	for _, member := range roster {
		names := append([]string{member.Name}, member.Aliases...)
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			patterns = append(patterns, rosterPattern{
				name:    member.Name,
				pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
			})
		}
	}
	return &FilterExtractor{currentIteration: currentIteration, roster: patterns}
}

// Extract parses the query for structured constraints and returns the filter
// together with the query text stripped of recognized filter phrases.
func (e *FilterExtractor) Extract(query string, snapshot *Snapshot) (domain.Filter, string) {
	var filter domain.Filter
	residual := query

	if m := iterationRe.FindStringSubmatch(residual); m != nil {
		filter.Iteration = "Sprint " + m[1]
		residual = iterationRe.ReplaceAllString(residual, " ")
	} else if currentRe.MatchString(residual) {
		filter.Iteration = e.resolveCurrentIteration(snapshot)
		residual = currentRe.ReplaceAllString(residual, " ")
	} else if previousRe.MatchString(residual) {
		if prev := previousIteration(e.resolveCurrentIteration(snapshot)); prev != "" {
			filter.Iteration = prev
		}
		residual = previousRe.ReplaceAllString(residual, " ")
	}

	for _, rule := range statusRules {
		if rule.pattern.MatchString(residual) {
			filter.Status = rule.status
			residual = rule.pattern.ReplaceAllString(residual, " ")
			break
		}
	}
	for _, rule := range priorityRules {
		if rule.pattern.MatchString(residual) {
			filter.Priority = rule.priority
			residual = rule.pattern.ReplaceAllString(residual, " ")
			break
		}
	}
	for _, rule := range flagRules {
		if rule.pattern.MatchString(residual) {
			rule.apply(&filter)
			residual = rule.pattern.ReplaceAllString(residual, " ")
		}
	}
	for _, member := range e.roster {
		if member.pattern.MatchString(residual) {
			filter.Assignee = member.name
			residual = member.pattern.ReplaceAllString(residual, " ")
			break
		}
	}
	if m := labelRe.FindStringSubmatch(residual); m != nil {
		filter.Label = m[1]
		residual = labelRe.ReplaceAllString(residual, " ")
	}

	return filter, strings.Join(strings.Fields(residual), " ")
}

// resolveCurrentIteration prefers the configured current iteration and falls
// back to the highest-numbered iteration present in the corpus.
func (e *FilterExtractor) resolveCurrentIteration(snapshot *Snapshot) string {
	if e.currentIteration != "" {
		return e.currentIteration
	}
	highest := 0
	name := ""
	if snapshot != nil {
		for _, item := range snapshot.Items() {
			if m := numberRe.FindStringSubmatch(item.Iteration); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
					highest = n
					name = item.Iteration
				}
			}
		}
	}
	return name
}

func previousIteration(current string) string {
	m := numberRe.FindStringSubmatch(current)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 1 {
		return ""
	}
	return fmt.Sprintf("Sprint %d", n-1)
}

// residualStopwords are glue words that remain after filter phrases are
// stripped; a residual made only of these carries no semantic content.
var residualStopwords = map[string]struct{}{
	"a": {}, "all": {}, "any": {}, "are": {}, "for": {}, "give": {}, "in": {},
	"is": {}, "items": {}, "list": {}, "me": {}, "of": {}, "on": {}, "show": {},
	"task": {}, "tasks": {}, "the": {}, "there": {}, "what": {}, "which": {},
	"work": {},
}

func emptyResidual(residual string) bool {
	for _, token := range tokenizeAlphaNum(residual) {
		if _, ok := residualStopwords[token]; !ok {
			return false
		}
	}
	return true
}
