package storage

import (
	"context"
	"io"
)

// MockStore is a test implementation of Store.
type MockStore struct {
	SaveFunc func(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Save delegates to the configured function or returns a fixed URL.
func (m *MockStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, filename, r)
	}
	return "/uploads/" + filename, nil
}
