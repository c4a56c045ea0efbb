// Package catalog wraps the product catalog search service.
package catalog

import (
	"context"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// Searcher maps a free-text product-name fragment to ranked catalog
// candidates. An empty result is a normal outcome, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error)
}
