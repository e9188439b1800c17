package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

const scrollPageSize = 256

// Index reads work items from a Qdrant collection owned by the ingestion
// pipeline. One point per item; structured attributes live in the payload.
type Index struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func NewIndex(baseURL, collection string) *Index {
	return &Index{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// GetByFilter scrolls the collection with payload-level filter conditions.
// limit <= 0 fetches the complete matching set.
func (c *Index) GetByFilter(ctx context.Context, filter domain.Filter, limit int) ([]domain.Item, error) {
	conditions := filterConditions(filter)

	var (
		items  []domain.Item
		offset any
	)
	for {
		pageLimit := scrollPageSize
		if limit > 0 && limit-len(items) < pageLimit {
			pageLimit = limit - len(items)
		}

		reqBody := map[string]any{
			"limit":        pageLimit,
			"with_payload": true,
			"with_vector":  false,
		}
		if len(conditions) > 0 {
			reqBody["filter"] = map[string]any{"must": conditions}
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := c.postJSON(ctx, "/points/scroll", reqBody, &scrollResp); err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}

		for _, point := range scrollResp.Result.Points {
			items = append(items, itemFromPayload(point.Payload))
		}

		offset = scrollResp.Result.NextPageOffset
		if offset == nil || len(scrollResp.Result.Points) == 0 {
			break
		}
		if limit > 0 && len(items) >= limit {
			items = items[:limit]
			break
		}
	}
	return items, nil
}

// VectorQuery searches by similarity, restricted to candidateIDs when given.
func (c *Index) VectorQuery(ctx context.Context, vector []float32, candidateIDs []string, topN int) ([]domain.Similarity, error) {
	if topN <= 0 {
		topN = 20
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topN,
		"with_payload": []string{"item_id"},
	}
	if len(candidateIDs) > 0 {
		anyOf := make([]any, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			anyOf = append(anyOf, id)
		}
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "item_id", "match": map[string]any{"any": anyOf}},
			},
		}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, "/points/search", reqBody, &searchResp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	out := make([]domain.Similarity, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Similarity{
			ItemID: getStringPayload(r.Payload, "item_id"),
			Score:  r.Score,
		})
	}
	return out, nil
}

// Count reports the exact number of indexed items.
func (c *Index) Count(ctx context.Context) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, "/points/count", map[string]any{"exact": true}, &countResp); err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return countResp.Result.Count, nil
}

func (c *Index) postJSON(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func filterConditions(filter domain.Filter) []map[string]any {
	conditions := []map[string]any{}
	match := func(key string, value any) {
		conditions = append(conditions, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}

	if filter.Iteration != "" {
		match("iteration", filter.Iteration)
	}
	if filter.Status != "" {
		match("status", string(filter.Status))
	}
	if filter.Priority != "" {
		match("priority", string(filter.Priority))
	}
	if filter.Assignee != "" {
		match("assignees", filter.Assignee)
	}
	if filter.Label != "" {
		match("labels", filter.Label)
	}
	if filter.Blocked != nil {
		match("blocked", *filter.Blocked)
	}
	if filter.HasOpenComments != nil {
		match("has_open_comments", *filter.HasOpenComments)
	}
	if filter.HasSubitems != nil {
		match("has_subitems", *filter.HasSubitems)
	}
	return conditions
}

func itemFromPayload(payload map[string]any) domain.Item {
	return domain.Item{
		ID:              getStringPayload(payload, "item_id"),
		Text:            getStringPayload(payload, "text"),
		Iteration:       getStringPayload(payload, "iteration"),
		Status:          domain.Status(getStringPayload(payload, "status")),
		Priority:        domain.Priority(getStringPayload(payload, "priority")),
		Assignees:       getStringSlicePayload(payload, "assignees"),
		Labels:          getStringSlicePayload(payload, "labels"),
		Blocked:         getBoolPayload(payload, "blocked"),
		HasOpenComments: getBoolPayload(payload, "has_open_comments"),
		HasSubitems:     getBoolPayload(payload, "has_subitems"),
		SubitemsTotal:   getIntPayload(payload, "subitems_total"),
		SubitemsDone:    getIntPayload(payload, "subitems_done"),
	}
}

func getStringPayload(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func getStringSlicePayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getBoolPayload(payload map[string]any, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}

func getIntPayload(payload map[string]any, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}
