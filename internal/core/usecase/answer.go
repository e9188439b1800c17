package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
)

const (
	emptyCorpusAnswer = "The backlog index is empty, so there is no data to answer from yet. Run the ingestion pipeline and try again."
	noMatchesAnswer   = "I could not find any items matching that query. You can widen the search to the whole project or ask about another sprint."
	degradedAnswer    = "I found relevant items but could not compose an answer right now. Please try again in a moment."
)

// AnswerRecorder receives per-answer observations. The metrics adapter
// implements it; a nop keeps the engine testable without one.
type AnswerRecorder interface {
	ObserveAnswer(intent domain.Intent, path domain.AnswerPath, fallback string, sources int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnswer(domain.Intent, domain.AnswerPath, string, int, time.Duration) {}

// AnswerUseCase is the single entry point turning a free-text question into
// either a deterministic aggregate answer or a synthesized retrieval answer,
// with conversational follow-up resolution in front of both.
type AnswerUseCase struct {
	snapshots   *SnapshotHolder
	extractor   *FilterExtractor
	router      *Router
	retriever   *RetrieveUseCase
	synthesizer ports.AnswerSynthesizer
	trackers    *TrackerRegistry
	audit       ports.ConversationLog
	recorder    AnswerRecorder
	logger      *slog.Logger
	timeout     time.Duration
}

func NewAnswerUseCase(
	snapshots *SnapshotHolder,
	extractor *FilterExtractor,
	router *Router,
	retriever *RetrieveUseCase,
	synthesizer ports.AnswerSynthesizer,
	trackers *TrackerRegistry,
	audit ports.ConversationLog,
	recorder AnswerRecorder,
	logger *slog.Logger,
	timeout time.Duration,
) *AnswerUseCase {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnswerUseCase{
		snapshots:   snapshots,
		extractor:   extractor,
		router:      router,
		retriever:   retriever,
		synthesizer: synthesizer,
		trackers:    trackers,
		audit:       audit,
		recorder:    recorder,
		logger:      logger,
		timeout:     timeout,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question, conversationID string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is required"))
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	started := time.Now()

	snapshot, err := uc.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure snapshot: %w", err)
	}

	tracker := uc.trackers.Get(conversationID)
	answer := uc.dispatch(ctx, snapshot, tracker, question)

	tracker.Update(question, firstSourceID(answer))
	uc.recorder.ObserveAnswer(answer.Intent, answer.Path, answer.Fallback, len(answer.Sources), time.Since(started))
	uc.appendAudit(ctx, conversationID, question, answer)

	return answer, nil
}

func (uc *AnswerUseCase) dispatch(ctx context.Context, snapshot *Snapshot, tracker *Tracker, question string) *domain.Answer {
	if snapshot.Empty() {
		return &domain.Answer{Text: emptyCorpusAnswer, Intent: domain.IntentRetrieve, Path: domain.PathNoData}
	}

	// Anaphoric follow-ups resolve to the last discussed item and bypass
	// retrieval entirely.
	if itemID, ok := tracker.Resolve(question); ok {
		return uc.answerDetail(snapshot, itemID)
	}

	intent, via := uc.router.Route(ctx, question)
	uc.logger.Debug("query_routed", "intent", intent, "via", via)

	filter, residual := uc.extractor.Extract(question, snapshot)

	switch intent {
	case domain.IntentCount:
		return uc.answerCount(ctx, snapshot, question, filter)
	case domain.IntentCompare:
		return uc.answerCompare(ctx, snapshot, question, filter)
	case domain.IntentReport:
		return uc.answerReport(ctx, snapshot, question, filter, residual)
	case domain.IntentDetail:
		if itemID := tracker.LastItemID(); itemID != "" {
			return uc.answerDetail(snapshot, itemID)
		}
		return uc.answerRetrieve(ctx, snapshot, question, filter, residual, domain.IntentDetail)
	default:
		return uc.answerRetrieve(ctx, snapshot, question, filter, residual, domain.IntentRetrieve)
	}
}

// answerCount handles COUNT_OR_CHECK: the manual path counts items under the
// extracted filter over the full set; distinct-value questions over non-item
// attributes are delegated to the synthesizer with exact pre-computed numbers.
func (uc *AnswerUseCase) answerCount(ctx context.Context, snapshot *Snapshot, question string, filter domain.Filter) *domain.Answer {
	plan := uc.router.CountPlan(question, filter)
	if plan.Delegated {
		return uc.answerDelegatedCount(ctx, snapshot, question, plan.Attribute)
	}

	total := CountItems(snapshot, filter)
	answer := &domain.Answer{Intent: domain.IntentCount, Path: domain.PathManualAggregate}

	description := describeFilter(filter)
	switch {
	case plan.Existence && total == 0:
		answer.Text = fmt.Sprintf("No, there are no %s.", description)
	case plan.Existence:
		matches := snapshot.Filtered(filter)
		answer.Text = fmt.Sprintf("Yes, there %s %d %s. For example: %s.",
			pluralVerb(total), total, description, itemHeadline(matches[0]))
		answer.Sources = []domain.RetrievedItem{{Item: matches[0]}}
	case total == 1:
		answer.Text = fmt.Sprintf("There is 1 %s.", singularize(description))
	default:
		answer.Text = fmt.Sprintf("There are %d %s.", total, description)
	}
	return answer
}

// answerDelegatedCount assembles a deterministic per-group summary and hands
// it to the language model for phrasing only; the numbers never come from the
// model. Synthesis failure falls back to phrasing the summary directly.
func (uc *AnswerUseCase) answerDelegatedCount(ctx context.Context, snapshot *Snapshot, question string, attribute domain.GroupAttribute) *domain.Answer {
	groups := GroupItems(snapshot, attribute, domain.Filter{})
	summary := groupSummaryBlock(attribute, groups)
	answer := &domain.Answer{Intent: domain.IntentCount, Path: domain.PathDelegatedAggregate}

	text, err := uc.synthesizer.Synthesize(ctx, question, summary)
	if err != nil {
		uc.logger.Warn("delegated_count_synthesis_failed", "fallback", fallbackSynthUnavailable, "error", err)
		answer.Fallback = fallbackSynthUnavailable
		answer.Text = deterministicGroupAnswer(attribute, groups)
		return answer
	}
	answer.Text = text
	return answer
}

func (uc *AnswerUseCase) answerCompare(ctx context.Context, snapshot *Snapshot, question string, filter domain.Filter) *domain.Answer {
	groups := iterationMentions(question)
	if len(groups) == 0 && filter.Iteration != "" {
		groups = []string{filter.Iteration}
	}
	if len(groups) < 2 {
		// Nothing concrete to compare; treat as a normal retrieval question.
		return uc.answerRetrieve(ctx, snapshot, question, filter, question, domain.IntentCompare)
	}

	rows := CompareGroups(snapshot, groups)
	block := comparisonBlock(rows)
	answer := &domain.Answer{Intent: domain.IntentCompare, Path: domain.PathCompare}

	text, err := uc.synthesizer.Synthesize(ctx, question, block)
	if err != nil {
		uc.logger.Warn("comparison_synthesis_failed", "fallback", fallbackSynthUnavailable, "error", err)
		answer.Fallback = fallbackSynthUnavailable
		answer.Text = block
		return answer
	}
	answer.Text = text
	return answer
}

// answerReport builds an iteration report: exact metrics plus the most
// relevant items, synthesized into a short summary.
func (uc *AnswerUseCase) answerReport(ctx context.Context, snapshot *Snapshot, question string, filter domain.Filter, residual string) *domain.Answer {
	iteration := filter.Iteration
	if iteration == "" {
		iteration = uc.extractor.resolveCurrentIteration(snapshot)
	}
	if iteration == "" {
		return uc.answerRetrieve(ctx, snapshot, question, filter, residual, domain.IntentReport)
	}

	metrics := MetricsFor(snapshot, iteration)
	if metrics.Total == 0 {
		return &domain.Answer{Text: noMatchesAnswer, Intent: domain.IntentReport, Path: domain.PathReport}
	}

	items, fallback, err := uc.retriever.Retrieve(ctx, snapshot, residual, domain.Filter{Iteration: iteration}, 0)
	if err != nil {
		items = nil
	}
	block := metricsBlock(metrics) + "\n" + sourcesBlock(items)
	answer := &domain.Answer{Intent: domain.IntentReport, Path: domain.PathReport, Sources: items, Fallback: fallback}

	text, synthErr := uc.synthesizer.Synthesize(ctx, question, block)
	if synthErr != nil {
		uc.logger.Warn("report_synthesis_failed", "fallback", fallbackSynthUnavailable, "error", synthErr)
		answer.Fallback = fallbackSynthUnavailable
		answer.Text = metricsBlock(metrics)
		return answer
	}
	answer.Text = text
	return answer
}

// answerDetail renders one item's full attributes deterministically; exact
// lookups do not need the language model.
func (uc *AnswerUseCase) answerDetail(snapshot *Snapshot, itemID string) *domain.Answer {
	item, ok := snapshot.ItemByID(itemID)
	if !ok {
		return &domain.Answer{Text: noMatchesAnswer, Intent: domain.IntentDetail, Path: domain.PathDetail}
	}
	return &domain.Answer{
		Text:    detailBlock(item),
		Intent:  domain.IntentDetail,
		Path:    domain.PathDetail,
		Sources: []domain.RetrievedItem{{Item: item}},
	}
}

func (uc *AnswerUseCase) answerRetrieve(ctx context.Context, snapshot *Snapshot, question string, filter domain.Filter, residual string, intent domain.Intent) *domain.Answer {
	items, fallback, err := uc.retriever.Retrieve(ctx, snapshot, residual, filter, 0)
	if err != nil {
		return &domain.Answer{Text: degradedAnswer, Intent: intent, Path: domain.PathRetrieval, Fallback: fallbackSynthUnavailable}
	}
	if len(items) == 0 {
		return &domain.Answer{Text: noMatchesAnswer, Intent: intent, Path: domain.PathRetrieval, Fallback: fallback}
	}

	answer := &domain.Answer{Intent: intent, Path: domain.PathRetrieval, Sources: items, Fallback: fallback}
	text, synthErr := uc.synthesizer.Synthesize(ctx, question, sourcesBlock(items))
	if synthErr != nil {
		// Unsynthesized excerpts are not a direct answer; degrade instead of
		// dumping retrieved text on the user.
		uc.logger.Warn("answer_synthesis_failed", "fallback", fallbackSynthUnavailable, "error", synthErr)
		answer.Fallback = fallbackSynthUnavailable
		answer.Text = degradedAnswer
		return answer
	}
	answer.Text = text
	return answer
}

func (uc *AnswerUseCase) appendAudit(ctx context.Context, conversationID, question string, answer *domain.Answer) {
	if uc.audit == nil {
		return
	}
	turn := domain.ConversationTurn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Question:       question,
		AnswerText:     answer.Text,
		Intent:         answer.Intent,
		Path:           answer.Path,
		ItemID:         firstSourceID(answer),
		Fallback:       answer.Fallback,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.audit.AppendTurn(ctx, turn); err != nil {
		uc.logger.Warn("audit_append_failed", "error", err)
	}
}

func firstSourceID(answer *domain.Answer) string {
	if answer == nil || len(answer.Sources) == 0 {
		return ""
	}
	return answer.Sources[0].Item.ID
}
