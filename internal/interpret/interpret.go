// Package interpret wraps the free-text order interpreter service.
package interpret

import (
	"context"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// Interpreter turns a pasted block of text into best-effort line items
// plus customer and payment hints. The interpreter is not trusted:
// every returned item is re-validated by the normal draft invariants.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*Result, error)
}

// Item is one interpreted line. Candidates are optional; when present
// the line starts off ambiguous instead of unknown.
type Item struct {
	Name       string
	Quantity   int
	UnitPrice  float64
	Candidates []domain.ProductCandidate
}

// Result is the interpreter's full answer for one paste.
type Result struct {
	Items         []Item
	CustomerName  string
	CustomerPhone string
	Notes         string
	PaymentAmount float64
}
