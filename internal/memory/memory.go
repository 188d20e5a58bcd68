// Package memory provides the client contract for the external semantic
// memory service used to recover previously generated assets by
// similarity search. The service itself is outside this repository;
// this engine only issues read queries.
package memory

// Query describes one semantic search request. Tags constrain the
// search to metadata matches (book id, entity type) while Text drives
// the similarity ranking.
type Query struct {
	Text  string            `json:"text"`
	Tags  map[string]string `json:"tags,omitempty"`
	Limit int               `json:"limit,omitempty"`
}

// Hit is one search result, ranked by descending score.
type Hit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Content  string            `json:"content,omitempty"`
	ImageURL string            `json:"imageUrl,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
