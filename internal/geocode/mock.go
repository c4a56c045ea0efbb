package geocode

import "context"

// MockGeocoder is a test implementation of Geocoder.
type MockGeocoder struct {
	ResolveFunc func(ctx context.Context, query string) (*Result, error)
}

// Resolve delegates to the configured function or reports no match.
func (m *MockGeocoder) Resolve(ctx context.Context, query string) (*Result, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, query)
	}
	return nil, ErrNoMatch
}
