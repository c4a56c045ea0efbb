package identity

import "context"

// MockResolver is a test implementation of Resolver.
type MockResolver struct {
	Name string
	Err  error
}

// CurrentSeller returns the configured name or error.
func (m *MockResolver) CurrentSeller(ctx context.Context) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Name, nil
}
