package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
)

type Router struct {
	answers    ports.AnswerService
	retriever  ports.ItemRetriever
	aggregates ports.AggregateReader
	refresher  ports.SnapshotRefresher
	logger     *slog.Logger
}

func NewRouter(
	answers ports.AnswerService,
	retriever ports.ItemRetriever,
	aggregates ports.AggregateReader,
	refresher ports.SnapshotRefresher,
	logger *slog.Logger,
) *Router {
	return &Router{
		answers:    answers,
		retriever:  retriever,
		aggregates: aggregates,
		refresher:  refresher,
		logger:     logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answer", rt.answer)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/iterations/", rt.iterationMetrics)
	mux.HandleFunc("/v1/refresh", rt.refresh)
	return mux
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sourceResponse struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Iteration   string  `json:"iteration,omitempty"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
	Reranked    bool    `json:"reranked"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question       string `json:"question"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	// Conversation identity is assigned here so the client can continue the
	// exchange with follow-up questions.
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	answer, err := rt.answers.Answer(r.Context(), req.Question, req.ConversationID)
	if err != nil {
		rt.logger.Error("answer_failed", "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":          answer.Text,
		"intent":          answer.Intent,
		"path":            answer.Path,
		"fallback":        answer.Fallback,
		"conversation_id": req.ConversationID,
		"sources":         sourcesResponse(answer.Sources),
	})
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query     string `json:"query"`
		TopK      int    `json:"top_k"`
		Iteration string `json:"iteration"`
		Status    string `json:"status"`
		Assignee  string `json:"assignee"`
		Label     string `json:"label"`
		Blocked   *bool  `json:"blocked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	filter := domain.Filter{
		Iteration: req.Iteration,
		Status:    domain.Status(req.Status),
		Assignee:  req.Assignee,
		Label:     req.Label,
		Blocked:   req.Blocked,
	}
	if strings.TrimSpace(req.Query) == "" && filter.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query or filter is required"})
		return
	}

	items, err := rt.retriever.Retrieve(r.Context(), req.Query, filter, req.TopK)
	if err != nil {
		rt.logger.Error("retrieve_failed", "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sourcesResponse(items)})
}

func (rt *Router) iterationMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/iterations/")
	iteration, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "metrics" || iteration == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	metrics, err := rt.aggregates.IterationMetrics(r.Context(), iteration)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (rt *Router) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.refresher.Refresh(r.Context()); err != nil {
		rt.logger.Error("refresh_failed", "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func sourcesResponse(items []domain.RetrievedItem) []sourceResponse {
	out := make([]sourceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, sourceResponse{
			ID:          item.Item.ID,
			Text:        item.Item.Text,
			Iteration:   item.Item.Iteration,
			Status:      string(item.Item.Status),
			Priority:    string(item.Item.Priority),
			FusedScore:  item.FusedScore,
			RerankScore: item.RerankScore,
			Reranked:    item.Reranked,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
