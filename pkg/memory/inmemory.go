package memory

import (
	"context"
	"sort"
	"sync"
)

// InMemoryVectorStore is a VectorStore kept in process memory. Searches
// compare the query with every stored vector.
type InMemoryVectorStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewInMemoryVectorStore creates an empty store.
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{points: make(map[string]Point)}
}

// Upsert implements VectorStore.
func (s *InMemoryVectorStore) Upsert(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

// Replace implements VectorStore.
func (s *InMemoryVectorStore) Replace(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[string]Point, len(points))
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

// Search implements VectorStore. At least one result is returned when the
// store is not empty. Ties keep id order so results are stable.
func (s *InMemoryVectorStore) Search(_ context.Context, vector []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	results := make([]SearchResult, 0, len(s.points))
	for _, p := range s.points {
		results = append(results, SearchResult{Document: p.Document, Score: Cosine(vector, p.Vector)})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len returns the number of stored points.
func (s *InMemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
