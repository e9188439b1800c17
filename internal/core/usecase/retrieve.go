package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
)

const (
	// fallback names, kept stable because dashboards and tests key on them
	fallbackEmbedUnavailable  = "embed_unavailable"
	fallbackRerankUnavailable = "rerank_unavailable"
	fallbackIndexFilterLocal  = "index_filter_local"
	fallbackSynthUnavailable  = "synthesis_unavailable"
)

type RetrievalConfig struct {
	TopK           int
	CandidateLimit int
	SemanticWeight float64
	LexicalWeight  float64
	RerankTopN     int
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 6
	}
	if out.CandidateLimit <= 0 {
		out.CandidateLimit = 20
	}
	if out.SemanticWeight <= 0 {
		out.SemanticWeight = 0.7
	}
	if out.LexicalWeight <= 0 {
		out.LexicalWeight = 0.3
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = 20
	}
	return out
}

// RetrieveUseCase is the fusion & rerank engine: hybrid semantic+lexical
// retrieval over a filter-bounded candidate set, weighted score fusion, and a
// pairwise rerank of the fused head.
type RetrieveUseCase struct {
	index    ports.ItemIndex
	embedder ports.Embedder
	reranker ports.Reranker
	cache    *embedCache
	logger   *slog.Logger
	cfg      RetrievalConfig
}

func NewRetrieveUseCase(
	index ports.ItemIndex,
	embedder ports.Embedder,
	reranker ports.Reranker,
	cacheSize int,
	cfg RetrievalConfig,
	logger *slog.Logger,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		index:    index,
		embedder: embedder,
		reranker: reranker,
		cache:    newEmbedCache(cacheSize),
		logger:   logger,
		cfg:      cfg.normalize(),
	}
}

// Retrieve runs the retrieval path against one snapshot. The returned
// fallback string is empty when the full pipeline ran, or names the degraded
// stage. An empty candidate set is an empty result, never an error.
func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	snapshot *Snapshot,
	query string,
	filter domain.Filter,
	topK int,
) ([]domain.RetrievedItem, string, error) {
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	// The filter bounds the search space before any scoring; applying it
	// after fusion would let excluded items distort the semantic top-K.
	candidates, fallback := uc.candidateSet(ctx, snapshot, filter)
	if len(candidates) == 0 {
		return []domain.RetrievedItem{}, fallback, nil
	}

	if emptyResidual(query) {
		// Filter-only query: no semantic content to score, keep index order.
		return headOf(candidates, topK), fallback, nil
	}

	candidateIDs := make([]string, 0, len(candidates))
	candidateSet := make(map[string]struct{}, len(candidates))
	for _, item := range candidates {
		candidateIDs = append(candidateIDs, item.ID)
		candidateSet[item.ID] = struct{}{}
	}

	semantic, semFallback := uc.semanticScores(ctx, query, candidateIDs)
	if semFallback != "" {
		fallback = semFallback
	}
	lexical := snapshot.lexical.topScores(query, candidateSet, uc.cfg.CandidateLimit)

	fused := fuseScores(semantic, lexical, uc.cfg.SemanticWeight, uc.cfg.LexicalWeight)
	fillItems(fused, snapshot, candidates)

	head := uc.cfg.RerankTopN
	if head > len(fused) {
		head = len(fused)
	}
	if rerankFallback := uc.rerank(ctx, query, fused[:head]); rerankFallback != "" {
		fallback = rerankFallback
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, fallback, nil
}

// candidateSet bounds the search space via the item index; when the index
// filter call fails the snapshot answers locally, since both hold the same
// item set by invariant.
func (uc *RetrieveUseCase) candidateSet(ctx context.Context, snapshot *Snapshot, filter domain.Filter) ([]domain.Item, string) {
	if filter.IsEmpty() {
		return snapshot.Items(), ""
	}
	items, err := uc.index.GetByFilter(ctx, filter, 0)
	if err != nil {
		uc.logger.Warn("index_filter_failed", "fallback", fallbackIndexFilterLocal, "error", err)
		return snapshot.Filtered(filter), fallbackIndexFilterLocal
	}
	return items, ""
}

// semanticScores embeds the query (through the LRU cache) and asks the index
// for the nearest candidates. Any collaborator failure degrades to
// lexical-only ranking.
func (uc *RetrieveUseCase) semanticScores(ctx context.Context, query string, candidateIDs []string) ([]domain.Similarity, string) {
	vector, ok := uc.cache.get(query)
	if !ok {
		var err error
		vector, err = uc.embedder.EmbedQuery(ctx, query)
		if err != nil {
			uc.logger.Warn("embedding_failed", "fallback", fallbackEmbedUnavailable, "error", err)
			return nil, fallbackEmbedUnavailable
		}
		uc.cache.put(query, vector)
	}

	hits, err := uc.index.VectorQuery(ctx, vector, candidateIDs, uc.cfg.CandidateLimit)
	if err != nil {
		uc.logger.Warn("vector_query_failed", "fallback", fallbackEmbedUnavailable, "error", err)
		return nil, fallbackEmbedUnavailable
	}
	return hits, ""
}

// rerank reorders the fused head in place. On collaborator failure the fused
// ordering stands.
func (uc *RetrieveUseCase) rerank(ctx context.Context, query string, head []domain.RetrievedItem) string {
	if uc.reranker == nil || len(head) == 0 {
		return ""
	}
	texts := make([]string, len(head))
	for i, candidate := range head {
		texts[i] = candidate.Item.Text
	}
	scores, err := uc.reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(head) {
		uc.logger.Warn("rerank_failed", "fallback", fallbackRerankUnavailable, "error", err)
		return fallbackRerankUnavailable
	}
	for i := range head {
		head[i].RerankScore = scores[i]
		head[i].Reranked = true
	}
	sort.SliceStable(head, func(i, j int) bool {
		if head[i].RerankScore != head[j].RerankScore {
			return head[i].RerankScore > head[j].RerankScore
		}
		if head[i].FusedScore != head[j].FusedScore {
			return head[i].FusedScore > head[j].FusedScore
		}
		return head[i].Item.ID < head[j].Item.ID
	})
	return ""
}

func fillItems(candidates []domain.RetrievedItem, snapshot *Snapshot, pool []domain.Item) {
	byID := make(map[string]domain.Item, len(pool))
	for _, item := range pool {
		byID[item.ID] = item
	}
	for i := range candidates {
		if item, ok := byID[candidates[i].Item.ID]; ok {
			candidates[i].Item = item
		} else if item, ok := snapshot.ItemByID(candidates[i].Item.ID); ok {
			candidates[i].Item = item
		}
	}
}

func headOf(items []domain.Item, n int) []domain.RetrievedItem {
	if n > len(items) {
		n = len(items)
	}
	out := make([]domain.RetrievedItem, 0, n)
	for _, item := range items[:n] {
		out = append(out, domain.RetrievedItem{Item: item})
	}
	return out
}
