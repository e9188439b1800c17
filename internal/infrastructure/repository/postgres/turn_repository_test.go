package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func TestTurnRepositoryAppendTurn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewTurnRepository(db)
	turn := domain.ConversationTurn{
		ID:             "turn-1",
		ConversationID: "conv-1",
		Question:       "how many blocked tasks",
		AnswerText:     "There are 2 blocked tasks.",
		Intent:         domain.IntentCount,
		Path:           domain.PathManualAggregate,
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO answer_turns").
		WithArgs(
			turn.ID,
			turn.ConversationID,
			turn.Question,
			turn.AnswerText,
			string(turn.Intent),
			string(turn.Path),
			nil,
			nil,
			turn.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AppendTurn(context.Background(), turn); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTurnRepositoryRecentTurns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewTurnRepository(db)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "question", "answer_text", "intent", "path", "item_id", "fallback", "created_at"}).
		AddRow("turn-2", "conv-1", "give me more detail", "[t3] payment gateway", string(domain.IntentDetail), string(domain.PathDetail), "t3", "", time.Now()).
		AddRow("turn-1", "conv-1", "are there any blocked tasks", "Yes, there are 2.", string(domain.IntentCount), string(domain.PathManualAggregate), "t3", "", time.Now())

	mock.ExpectQuery("FROM answer_turns").
		WithArgs("conv-1", 5).
		WillReturnRows(rows)

	turns, err := repo.RecentTurns(context.Background(), "conv-1", 5)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Intent != domain.IntentDetail || turns[0].ItemID != "t3" {
		t.Fatalf("unexpected first turn: %+v", turns[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
