package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server for embeddings, intent classification
// and answer phrasing. Generation calls share a rate limiter so aggregate
// traffic cannot starve the model.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor, rps float64) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapCollaborator("embed", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, wrapCollaborator("embed", fmt.Errorf("empty embedding result"))
	}
	return response.Embeddings[0], nil
}

// Synthesizer phrases the final answer strictly from the prepared context
// block; it never sees the raw corpus.
type Synthesizer struct {
	client *Client
}

func NewSynthesizer(client *Client) *Synthesizer {
	return &Synthesizer{client: client}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question, contextBlock string) (string, error) {
	text, err := s.client.generateText(ctx, buildAnswerPrompt(question, contextBlock))
	if err != nil {
		return "", wrapCollaborator("synthesize", err)
	}
	if text == "" {
		return "", wrapCollaborator("synthesize", fmt.Errorf("empty generation result"))
	}
	return text, nil
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) ClassifyIntent(ctx context.Context, query string) (domain.IntentLabel, error) {
	respText, err := c.client.generateJSON(ctx, buildIntentPrompt(query))
	if err != nil {
		return domain.IntentLabel{}, wrapCollaborator("classify_intent", err)
	}

	var result struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.IntentLabel{}, fmt.Errorf("parse intent json: %w", err)
	}
	return domain.IntentLabel{
		Intent:     domain.Intent(strings.ToLower(strings.TrimSpace(result.Intent))),
		Confidence: result.Confidence,
	}, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.execute(ctx, "generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, "ollama_"+operation, fn, classifyOllamaError)
}

func wrapCollaborator(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrCollaboratorUnavailable, operation, err)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
