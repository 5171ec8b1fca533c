package email

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/pkg/mocks"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/protocol"
)

func newExecCtx() *models.ExecutionContext {
	pub := &models.Pub{ID: "pub-1", Title: "Launch post", Status: models.PubStatusDraft}

	return models.NewExecutionContext("run-1", "inst-1", pub, models.EventPubEnteredStage, nil)
}

func TestExecuteEnqueuesDeferredSend(t *testing.T) {
	scheduler := &mocks.MockJobScheduler{}
	scheduler.On("ScheduleJob", mock.Anything, "email:run-1", mock.MatchedBy(func(payload protocol.JobPayload) bool {
		return payload.PubID == "pub-1" &&
			payload.ActionInstanceID == "inst-1" &&
			payload.Config["send_now"] == true &&
			payload.Config["to"] == "editor@example.com"
	}), mock.Anything).Return(nil)

	action, err := NewAction(map[string]any{
		"to":      "editor@example.com",
		"subject": "ready for review",
	}, scheduler)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), newExecCtx(), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusScheduled, result.Status)
	assert.Equal(t, "email:run-1", result.JobKey)
	scheduler.AssertExpectations(t)
}

func TestExecuteSendNowDeliversInline(t *testing.T) {
	scheduler := &mocks.MockJobScheduler{}

	action, err := NewAction(map[string]any{
		"to":       "editor@example.com",
		"subject":  "ready for review",
		"send_now": true,
	}, scheduler)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), newExecCtx(), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, result.Status)
	assert.Equal(t, "editor@example.com", result.Data["to"])
	scheduler.AssertNotCalled(t, "ScheduleJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteWithoutSchedulerDeliversInline(t *testing.T) {
	action, err := NewAction(map[string]any{"to": "editor@example.com"}, nil)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), newExecCtx(), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, result.Status)
}

func TestExecuteScheduleFailure(t *testing.T) {
	scheduler := &mocks.MockJobScheduler{}
	scheduler.On("ScheduleJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	action, err := NewAction(map[string]any{"to": "editor@example.com"}, scheduler)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), newExecCtx(), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule email job")
}

func TestNewActionRequiresRecipient(t *testing.T) {
	_, err := NewAction(map[string]any{"subject": "no recipient"}, nil)

	require.ErrorIs(t, err, ErrRecipientRequired)
}
