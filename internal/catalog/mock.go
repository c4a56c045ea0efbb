package catalog

import (
	"context"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// MockSearcher is a test implementation of Searcher.
type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error)
}

// Search delegates to the configured function or returns no candidates.
func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []domain.ProductCandidate{}, nil
}
