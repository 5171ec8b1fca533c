package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExpressionEvaluator is a mock implementation of the
// protocol.ExpressionEvaluator interface.
type MockExpressionEvaluator struct {
	mock.Mock
}

func (m *MockExpressionEvaluator) Evaluate(ctx context.Context, expression string, env map[string]any) (any, error) {
	args := m.Called(ctx, expression, env)

	return args.Get(0), args.Error(1)
}
