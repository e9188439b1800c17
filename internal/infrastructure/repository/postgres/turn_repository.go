package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// TurnRepository persists answered turns for audit. The engine only appends
// and reads back recent history; it never mutates past turns.
type TurnRepository struct {
	db *sql.DB
}

func NewTurnRepository(db *sql.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TurnRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answer_turns (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer_text TEXT NOT NULL,
	intent TEXT NOT NULL,
	path TEXT NOT NULL,
	item_id TEXT,
	fallback TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_turns_conversation ON answer_turns(conversation_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TurnRepository) AppendTurn(ctx context.Context, turn domain.ConversationTurn) error {
	const query = `
INSERT INTO answer_turns (id, conversation_id, question, answer_text, intent, path, item_id, fallback, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.ExecContext(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.Question,
		turn.AnswerText,
		string(turn.Intent),
		string(turn.Path),
		nullable(turn.ItemID),
		nullable(turn.Fallback),
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer turn: %w", err)
	}
	return nil
}

// RecentTurns returns the latest turns of one conversation, newest first.
func (r *TurnRepository) RecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `
SELECT id, conversation_id, question, answer_text, intent, path, COALESCE(item_id, ''), COALESCE(fallback, ''), created_at
FROM answer_turns
WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var (
			turn   domain.ConversationTurn
			intent string
			path   string
		)
		if err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.Question,
			&turn.AnswerText,
			&intent,
			&path,
			&turn.ItemID,
			&turn.Fallback,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer turn: %w", err)
		}
		turn.Intent = domain.Intent(intent)
		turn.Path = domain.AnswerPath(path)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer turns: %w", err)
	}
	return turns, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
