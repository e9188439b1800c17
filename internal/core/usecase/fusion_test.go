package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func TestFuseScoresWeightLaw(t *testing.T) {
	semantic := []domain.Similarity{
		{ItemID: "a", Score: 0.9},
		{ItemID: "b", Score: 0.1},
	}
	lexical := []lexicalHit{
		{itemID: "b", score: 5},
		{itemID: "c", score: 1},
	}

	fused := fuseScores(semantic, lexical, 0.7, 0.3)
	byID := make(map[string]domain.RetrievedItem)
	for _, item := range fused {
		byID[item.Item.ID] = item
	}

	// b is present in both lists: normalized semantic 0, normalized lexical 1.
	want := 0.7*0.0 + 0.3*1.0
	if math.Abs(byID["b"].FusedScore-want) > 1e-9 {
		t.Fatalf("fused score for b = %v, want %v", byID["b"].FusedScore, want)
	}
	// a only in semantic: missing lexical component counts as 0, not exclusion.
	if math.Abs(byID["a"].FusedScore-0.7) > 1e-9 {
		t.Fatalf("fused score for a = %v, want 0.7", byID["a"].FusedScore)
	}
	if byID["a"].LexicalScore != 0 {
		t.Fatalf("expected zero lexical component for a, got %v", byID["a"].LexicalScore)
	}
	// c only in lexical with the pool minimum normalizes to 0 but stays listed.
	if _, ok := byID["c"]; !ok {
		t.Fatalf("expected c to remain in fused list")
	}
}

func TestFuseScoresOrderingDeterministic(t *testing.T) {
	semantic := []domain.Similarity{
		{ItemID: "a", Score: 0.9},
		{ItemID: "b", Score: 0.1},
	}
	lexical := []lexicalHit{
		{itemID: "b", score: 5},
		{itemID: "c", score: 1},
	}

	first := fuseScores(semantic, lexical, 0.7, 0.3)
	second := fuseScores(semantic, lexical, 0.7, 0.3)
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Item.ID != second[i].Item.ID {
			t.Fatalf("ordering not deterministic at %d: %s vs %s", i, first[i].Item.ID, second[i].Item.ID)
		}
	}
	if first[0].Item.ID != "a" {
		t.Fatalf("expected a first (fused 0.7), got %s", first[0].Item.ID)
	}
}

func TestMinMaxDegeneratePool(t *testing.T) {
	semantic := []domain.Similarity{{ItemID: "only", Score: 0.42}}
	fused := fuseScores(semantic, nil, 0.7, 0.3)
	if len(fused) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(fused))
	}
	if fused[0].SemanticScore != 1 {
		t.Fatalf("single-candidate pool should normalize to 1, got %v", fused[0].SemanticScore)
	}
}
