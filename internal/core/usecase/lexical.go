package usecase

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// lexicalModel is an in-memory BM25 ranking model built once per corpus
// snapshot over exactly the snapshot's item set.
type lexicalModel struct {
	termFreq  map[string]map[string]float64
	docFreq   map[string]int
	docLen    map[string]int
	avgDocLen float64
	totalDocs int
}

func newLexicalModel() *lexicalModel {
	return &lexicalModel{
		termFreq: make(map[string]map[string]float64),
		docFreq:  make(map[string]int),
		docLen:   make(map[string]int),
	}
}

func (m *lexicalModel) add(itemID, text string) {
	tokens := tokenizeAlphaNum(text)
	if len(tokens) == 0 {
		m.docLen[itemID] = 0
		m.totalDocs++
		return
	}

	tf := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}
	for term := range tf {
		if m.termFreq[term] == nil {
			m.termFreq[term] = make(map[string]float64, 4)
		}
		m.termFreq[term][itemID] = tf[term]
		m.docFreq[term]++
	}
	m.docLen[itemID] = len(tokens)
	m.totalDocs++
}

func (m *lexicalModel) finalize() {
	if m.totalDocs == 0 {
		return
	}
	total := 0
	for _, l := range m.docLen {
		total += l
	}
	m.avgDocLen = float64(total) / float64(m.totalDocs)
}

type lexicalHit struct {
	itemID string
	score  float64
}

// topScores ranks candidate items against the query. candidates restricts the
// scored set; nil means the whole snapshot.
func (m *lexicalModel) topScores(query string, candidates map[string]struct{}, topN int) []lexicalHit {
	if m.totalDocs == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, term := range tokenizeAlphaNum(query) {
		postings, ok := m.termFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1.0 + (float64(m.totalDocs)-float64(m.docFreq[term])+0.5)/(float64(m.docFreq[term])+0.5))
		for itemID, tf := range postings {
			if candidates != nil {
				if _, ok := candidates[itemID]; !ok {
					continue
				}
			}
			lengthNorm := 1.0 - bm25B + bm25B*float64(m.docLen[itemID])/m.avgDocLen
			scores[itemID] += idf * (tf * (bm25K1 + 1.0)) / (tf + bm25K1*lengthNorm)
		}
	}

	hits := make([]lexicalHit, 0, len(scores))
	for itemID, score := range scores {
		hits = append(hits, lexicalHit{itemID: itemID, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].itemID < hits[j].itemID
	})
	if topN > 0 && len(hits) > topN {
		hits = hits[:topN]
	}
	return hits
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
