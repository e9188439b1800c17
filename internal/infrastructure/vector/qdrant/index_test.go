package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func TestGetByFilterBuildsConditionsAndPaginates(t *testing.T) {
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/backlog/points/scroll" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		requests = append(requests, body)

		if len(requests) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"points": []map[string]any{
						{"payload": map[string]any{
							"item_id":   "t1",
							"text":      "payment gateway integration",
							"iteration": "Sprint 2",
							"status":    "in_progress",
							"blocked":   true,
							"assignees": []string{"Ana"},
						}},
					},
					"next_page_offset": "cursor-1",
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"points": []map[string]any{
					{"payload": map[string]any{"item_id": "t2", "text": "email templates", "iteration": "Sprint 2"}},
				},
				"next_page_offset": nil,
			},
		})
	}))
	defer server.Close()

	index := NewIndex(server.URL, "backlog")
	items, err := index.GetByFilter(context.Background(), domain.Filter{
		Iteration: "Sprint 2",
		Blocked:   domain.BoolPtr(true),
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "t1" || items[1].ID != "t2" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !items[0].Blocked || items[0].Status != domain.StatusInProgress {
		t.Fatalf("payload attributes lost: %+v", items[0])
	}

	if len(requests) != 2 {
		t.Fatalf("expected 2 scroll pages, got %d", len(requests))
	}
	filter, ok := requests[0]["filter"].(map[string]any)
	if !ok {
		t.Fatalf("first request carries no filter: %v", requests[0])
	}
	must, _ := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 must conditions, got %v", filter)
	}
	if requests[1]["offset"] != "cursor-1" {
		t.Fatalf("second page must resume from next_page_offset, got %v", requests[1]["offset"])
	}
}

func TestVectorQueryRestrictsToCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/backlog/points/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		filter, ok := body["filter"].(map[string]any)
		if !ok {
			t.Fatalf("candidate restriction missing: %v", body)
		}
		must := filter["must"].([]any)
		cond := must[0].(map[string]any)
		if cond["key"] != "item_id" {
			t.Fatalf("restriction must match item_id, got %v", cond)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.92, "payload": map[string]any{"item_id": "t1"}},
				{"score": 0.31, "payload": map[string]any{"item_id": "t2"}},
			},
		})
	}))
	defer server.Close()

	index := NewIndex(server.URL, "backlog")
	hits, err := index.VectorQuery(context.Background(), []float32{0.1, 0.2}, []string{"t1", "t2"}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 || hits[0].ItemID != "t1" || hits[0].Score != 0.92 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestCountExact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/backlog/points/count" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["exact"] != true {
			t.Fatalf("count must request exact totals, got %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": 42}})
	}))
	defer server.Close()

	index := NewIndex(server.URL, "backlog")
	count, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}

func TestStatusErrorsSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	index := NewIndex(server.URL, "backlog")
	if _, err := index.Count(context.Background()); err == nil {
		t.Fatalf("expected error on 503")
	}
}
