// Package geocode wraps the geocoding service used to normalize
// delivery addresses.
package geocode

import (
	"context"
	"errors"
)

// ErrNoMatch is returned when the service finds no result for a query.
// It is an expected outcome: the raw address text alone still satisfies
// the delivery stage gate.
var ErrNoMatch = errors.New("geocode: no match for query")

// Result is the best geocoding match for a free-text address or map link.
type Result struct {
	FormattedAddress string  `json:"formattedAddress"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Geocoder resolves free-text address input into a normalized address
// with coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (*Result, error)
}
