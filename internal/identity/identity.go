// Package identity wraps the session identity service that tells the
// workflow which seller is entering orders.
package identity

import "context"

// PlaceholderSeller is shown when the identity service cannot be
// reached. Identity failure never blocks the workflow.
const PlaceholderSeller = "Vendedor"

// Resolver looks up the current seller's display name.
type Resolver interface {
	CurrentSeller(ctx context.Context) (string, error)
}
