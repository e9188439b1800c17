package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/resilience"
)

// Reranker scores (query, text) pairs against a text-embeddings-inference
// /rerank endpoint and returns the scores in input order.
type Reranker struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Reranker {
	return &Reranker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var ranked []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	call := func(ctx context.Context) error {
		ranked = ranked[:0]
		return r.postRerank(ctx, query, texts, &ranked)
	}

	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, "tei_rerank", call, classifyRerankError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCollaboratorUnavailable, "rerank", err)
	}

	scores := make([]float64, len(texts))
	for _, entry := range ranked {
		if entry.Index < 0 || entry.Index >= len(scores) {
			return nil, fmt.Errorf("rerank index %d out of range", entry.Index)
		}
		scores[entry.Index] = entry.Score
	}
	return scores, nil
}

func (r *Reranker) postRerank(ctx context.Context, query string, texts []string, out any) error {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"texts": texts,
	})
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("rerank status: %s", resp.Status)
		}
		return fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}

func classifyRerankError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	return resilience.ErrorClassification{
		Retryable:     true,
		RecordFailure: true,
	}
}
