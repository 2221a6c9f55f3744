// Package memory provides the knowledge store behind retrieval, the history
// summarizer and conversation persistence.
package memory

import "context"

// Document is a knowledge entry that can be retrieved as prompt context.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Point is a document with its embedding.
type Point struct {
	ID       string
	Vector   []float32
	Document Document
}

// SearchResult is a document scored against a query vector.
type SearchResult struct {
	Document
	Score float32 `json:"score"`
}

// VectorStore defines the interface for a vector index.
type VectorStore interface {
	// Upsert adds or replaces points by id.
	Upsert(ctx context.Context, points []Point) error
	// Replace drops every stored point and stores points.
	Replace(ctx context.Context, points []Point) error
	// Search returns the limit nearest points, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)
}

// Embedder defines the interface for converting text to vectors.
type Embedder interface {
	// Embed converts a text string into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}
