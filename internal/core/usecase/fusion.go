package usecase

import (
	"sort"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// fuseScores merges independently normalized semantic and lexical rankings.
// Each list is min-max normalized over its own candidate pool; an item present
// in only one list receives 0 for the missing component rather than being
// excluded.
func fuseScores(
	semantic []domain.Similarity,
	lexical []lexicalHit,
	semanticWeight, lexicalWeight float64,
) []domain.RetrievedItem {
	semNorm := normalizeSimilarity(semantic)
	lexNorm := normalizeLexical(lexical)

	fused := make(map[string]domain.RetrievedItem, len(semNorm)+len(lexNorm))
	for id, score := range semNorm {
		entry := fused[id]
		entry.Item = domain.Item{ID: id}
		entry.SemanticScore = score
		fused[id] = entry
	}
	for id, score := range lexNorm {
		entry := fused[id]
		entry.Item = domain.Item{ID: id}
		entry.LexicalScore = score
		fused[id] = entry
	}

	out := make([]domain.RetrievedItem, 0, len(fused))
	for id, entry := range fused {
		entry.FusedScore = semanticWeight*entry.SemanticScore + lexicalWeight*entry.LexicalScore
		entry.Item.ID = id
		out = append(out, entry)
	}
	sortByFused(out)
	return out
}

func sortByFused(items []domain.RetrievedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FusedScore != items[j].FusedScore {
			return items[i].FusedScore > items[j].FusedScore
		}
		return items[i].Item.ID < items[j].Item.ID
	})
}

func normalizeSimilarity(hits []domain.Similarity) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}
	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		out[h.ItemID] = minMax(h.Score, minScore, maxScore)
	}
	return out
}

func normalizeLexical(hits []lexicalHit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}
	minScore, maxScore := hits[0].score, hits[0].score
	for _, h := range hits[1:] {
		if h.score < minScore {
			minScore = h.score
		}
		if h.score > maxScore {
			maxScore = h.score
		}
	}
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		out[h.itemID] = minMax(h.score, minScore, maxScore)
	}
	return out
}

// minMax maps a score into [0,1] over its pool. A degenerate pool where every
// score is equal normalizes to 1 so the component still contributes.
func minMax(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}
