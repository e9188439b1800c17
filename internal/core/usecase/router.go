package usecase

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
)

// Router classifies a query into an intent. Rule triggers are evaluated in a
// fixed order; only when none fires is the language-model classifier asked,
// and its label is accepted only above the confidence threshold. Everything
// below that defaults to retrieval.
type Router struct {
	classifier ports.IntentClassifier
	threshold  float64
	logger     *slog.Logger
}

type intentRule struct {
	pattern *regexp.Regexp
	intent  domain.Intent
}

var intentRules = []intentRule{
	{regexp.MustCompile(`(?i)\b(?:report|summar(?:y|ize|ise))\b`), domain.IntentReport},
	{regexp.MustCompile(`(?i)\bcompare\b|\bversus\b|\bvs\.?\s`), domain.IntentCompare},
	{regexp.MustCompile(`(?i)\bhow many\b|\bcount of\b|\bnumber of\b|\btotal of\b`), domain.IntentCount},
	{regexp.MustCompile(`(?i)\b(?:are|is) there (?:any|a|some)\b|\bdo we have any\b`), domain.IntentCount},
	{regexp.MustCompile(`(?i)\btell me (?:more )?about\b|\bdetails? (?:of|about|on)\b|\bmore (?:info|details?)\b`), domain.IntentDetail},
}

var existenceRe = regexp.MustCompile(`(?i)\b(?:are|is) there (?:any|a|some)\b|\bdo we have any\b|\bexists?\b`)

// delegatedCountRules map distinct-value questions over non-item attributes to
// the grouping the delegated summary should run over. Anything not matched
// here stays on the manual counting path.
var delegatedCountRules = []struct {
	pattern   *regexp.Regexp
	attribute domain.GroupAttribute
}{
	{regexp.MustCompile(`(?i)\b(?:sprints|iterations)\b`), domain.GroupByIteration},
	{regexp.MustCompile(`(?i)\b(?:people|assignees|members|developers)\b`), domain.GroupByAssignee},
	{regexp.MustCompile(`(?i)\b(?:labels|tags)\b`), domain.GroupByLabel},
	{regexp.MustCompile(`(?i)\b(?:statuses|states)\b`), domain.GroupByStatus},
	{regexp.MustCompile(`(?i)\bpriorities\b`), domain.GroupByPriority},
}

func NewRouter(classifier ports.IntentClassifier, threshold float64, logger *slog.Logger) *Router {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &Router{classifier: classifier, threshold: threshold, logger: logger}
}

// Route returns the intent plus the source of the decision ("rule",
// "classifier" or "default") for fallback-visible logging.
func (r *Router) Route(ctx context.Context, query string) (domain.Intent, string) {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(query) {
			return rule.intent, "rule"
		}
	}

	if r.classifier == nil {
		return domain.IntentRetrieve, "default"
	}
	label, err := r.classifier.ClassifyIntent(ctx, query)
	if err != nil {
		r.logger.Warn("intent_classifier_unavailable", "fallback", "default_retrieve", "error", err)
		return domain.IntentRetrieve, "default"
	}
	if label.Confidence < r.threshold || !knownIntent(label.Intent) {
		r.logger.Info("intent_confidence_below_threshold",
			"intent", label.Intent, "confidence", label.Confidence, "fallback", "default_retrieve")
		return domain.IntentRetrieve, "default"
	}
	return label.Intent, "classifier"
}

// CountPlan decides between the manual aggregate path and delegation for a
// COUNT_OR_CHECK query. Manual covers item counts under compound filters;
// distinct-value questions over non-item attributes are delegated with a
// deterministic per-group summary.
type CountPlan struct {
	Delegated bool
	Attribute domain.GroupAttribute
	Existence bool
}

func (r *Router) CountPlan(query string, filter domain.Filter) CountPlan {
	plan := CountPlan{Existence: existenceRe.MatchString(query)}
	if !filter.IsEmpty() {
		// An extracted item filter always has a manual answer.
		return plan
	}
	for _, rule := range delegatedCountRules {
		if rule.pattern.MatchString(query) {
			plan.Delegated = true
			plan.Attribute = rule.attribute
			return plan
		}
	}
	return plan
}

func knownIntent(intent domain.Intent) bool {
	switch intent {
	case domain.IntentRetrieve, domain.IntentCount, domain.IntentDetail, domain.IntentCompare, domain.IntentReport:
		return true
	default:
		return false
	}
}
