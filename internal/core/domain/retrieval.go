package domain

// Similarity is one semantic match returned by the item index.
type Similarity struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// RetrievedItem carries an item together with the scores that explain its
// position in the final ranking.
type RetrievedItem struct {
	Item          Item    `json:"item"`
	SemanticScore float64 `json:"semantic_score"`
	LexicalScore  float64 `json:"lexical_score"`
	FusedScore    float64 `json:"fused_score"`
	RerankScore   float64 `json:"rerank_score,omitempty"`
	Reranked      bool    `json:"reranked"`
}

// IntentLabel is the classifier's verdict for a query.
type IntentLabel struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}
