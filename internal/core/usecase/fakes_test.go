package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errFakeDown = errors.New("collaborator down")

type indexFake struct {
	items       []domain.Item
	filterErr   error
	vectorHits  []domain.Similarity
	vectorErr   error
	count       int
	countErr    error
	filterCalls int
	vectorCalls int
	countCalls  int
}

func (f *indexFake) GetByFilter(_ context.Context, filter domain.Filter, limit int) ([]domain.Item, error) {
	f.filterCalls++
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	out := make([]domain.Item, 0, len(f.items))
	for _, item := range f.items {
		if filter.Matches(item) {
			out = append(out, item)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *indexFake) VectorQuery(_ context.Context, _ []float32, _ []string, _ int) ([]domain.Similarity, error) {
	f.vectorCalls++
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vectorHits, nil
}

func (f *indexFake) Count(context.Context) (int, error) {
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	if f.count > 0 {
		return f.count, nil
	}
	return len(f.items), nil
}

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type rerankerFake struct {
	scores []float64
	err    error
	calls  int
}

func (f *rerankerFake) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scores) >= len(texts) {
		return f.scores[:len(texts)], nil
	}
	return f.scores, nil
}

type classifierFake struct {
	label domain.IntentLabel
	err   error
	calls int
}

func (f *classifierFake) ClassifyIntent(context.Context, string) (domain.IntentLabel, error) {
	f.calls++
	if f.err != nil {
		return domain.IntentLabel{}, f.err
	}
	return f.label, nil
}

type synthFake struct {
	reply       string
	err         error
	lastContext string
	calls       int
}

func (f *synthFake) Synthesize(_ context.Context, _ string, contextBlock string) (string, error) {
	f.calls++
	f.lastContext = contextBlock
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type auditFake struct {
	turns []domain.ConversationTurn
	err   error
}

func (f *auditFake) AppendTurn(_ context.Context, turn domain.ConversationTurn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}
