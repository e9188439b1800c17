package usecase

import "testing"

func buildLexicalModel(docs map[string]string) *lexicalModel {
	model := newLexicalModel()
	for id, text := range docs {
		model.add(id, text)
	}
	model.finalize()
	return model
}

func TestLexicalModelRanksTermMatches(t *testing.T) {
	model := buildLexicalModel(map[string]string{
		"t1": "fix login page redirect bug",
		"t2": "update billing invoice export",
		"t3": "login form validation and login error messages",
	})

	hits := model.topScores("login bug", nil, 10)
	if len(hits) == 0 {
		t.Fatalf("expected hits for matching terms")
	}
	for _, hit := range hits {
		if hit.itemID == "t2" {
			t.Fatalf("t2 shares no terms with the query, should not be scored")
		}
	}
	if hits[0].itemID != "t1" {
		t.Fatalf("expected t1 first (matches both query terms), got %s", hits[0].itemID)
	}
}

func TestLexicalModelRespectsCandidateSet(t *testing.T) {
	model := buildLexicalModel(map[string]string{
		"t1": "login bug",
		"t2": "login bug duplicate",
	})

	hits := model.topScores("login", map[string]struct{}{"t2": {}}, 10)
	if len(hits) != 1 || hits[0].itemID != "t2" {
		t.Fatalf("expected only t2 scored, got %+v", hits)
	}
}

func TestLexicalModelEmptyCorpus(t *testing.T) {
	model := newLexicalModel()
	model.finalize()
	if hits := model.topScores("anything", nil, 5); len(hits) != 0 {
		t.Fatalf("expected no hits from empty model, got %d", len(hits))
	}
}

func TestTokenizeAlphaNumLowercasesAndSplits(t *testing.T) {
	tokens := tokenizeAlphaNum("Fix API-2 Login!")
	want := []string{"fix", "api", "2", "login"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", tokens, want)
		}
	}
}
