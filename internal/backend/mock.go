package backend

import "context"

// MockSubmitter is a test implementation of Submitter. It records every
// submitted payload so tests can assert what went over the wire.
type MockSubmitter struct {
	OrderNumber string
	Err         error

	Calls []*SubmitRequest
}

// Submit records the payload and returns the configured outcome.
func (m *MockSubmitter) Submit(ctx context.Context, order *SubmitRequest) (string, error) {
	m.Calls = append(m.Calls, order)
	if m.Err != nil {
		return "", m.Err
	}
	if m.OrderNumber != "" {
		return m.OrderNumber, nil
	}
	return "PED-0001", nil
}
