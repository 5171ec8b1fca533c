package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pubflow/pubflow/pkg/protocol"
)

// MockJobScheduler is a mock implementation of the protocol.JobScheduler
// interface.
type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) ScheduleJob(ctx context.Context, key string, payload protocol.JobPayload, runAt time.Time) error {
	args := m.Called(ctx, key, payload, runAt)

	return args.Error(0)
}

func (m *MockJobScheduler) UnscheduleJob(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}
