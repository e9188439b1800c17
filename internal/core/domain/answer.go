package domain

import "time"

type Intent string

const (
	IntentRetrieve Intent = "retrieve"
	IntentCount    Intent = "count_or_check"
	IntentDetail   Intent = "detail"
	IntentCompare  Intent = "compare"
	IntentReport   Intent = "report"
)

// AnswerPath names which pipeline produced the answer. Fallback paths must be
// distinguishable in logs even though the user-facing text stays natural.
type AnswerPath string

const (
	PathRetrieval          AnswerPath = "retrieval"
	PathManualAggregate    AnswerPath = "manual_aggregate"
	PathDelegatedAggregate AnswerPath = "delegated_aggregate"
	PathDetail             AnswerPath = "detail"
	PathReport             AnswerPath = "report"
	PathCompare            AnswerPath = "compare"
	PathNoData             AnswerPath = "no_data"
)

type Answer struct {
	Text     string          `json:"text"`
	Intent   Intent          `json:"intent"`
	Path     AnswerPath      `json:"path"`
	Sources  []RetrievedItem `json:"sources,omitempty"`
	Fallback string          `json:"fallback,omitempty"`
}

// ConversationTurn is one audited question/answer exchange.
type ConversationTurn struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Question       string     `json:"question"`
	AnswerText     string     `json:"answer_text"`
	Intent         Intent     `json:"intent"`
	Path           AnswerPath `json:"path"`
	ItemID         string     `json:"item_id,omitempty"`
	Fallback       string     `json:"fallback,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
