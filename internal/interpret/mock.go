package interpret

import "context"

// MockInterpreter is a test implementation of Interpreter.
type MockInterpreter struct {
	InterpretFunc func(ctx context.Context, text string) (*Result, error)
}

// Interpret delegates to the configured function or returns an empty result.
func (m *MockInterpreter) Interpret(ctx context.Context, text string) (*Result, error) {
	if m.InterpretFunc != nil {
		return m.InterpretFunc(ctx, text)
	}
	return &Result{}, nil
}
