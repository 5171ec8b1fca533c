package email

import (
	"context"

	"github.com/pubflow/pubflow/pkg/protocol"
)

type ActionFactory struct {
	scheduler protocol.JobScheduler
}

func NewActionFactory(scheduler protocol.JobScheduler) *ActionFactory {
	return &ActionFactory{scheduler: scheduler}
}

func (*ActionFactory) ID() string {
	return "email"
}

func (*ActionFactory) Name() string {
	return "Email"
}

func (*ActionFactory) Description() string {
	return "Sends an email through the deferred job scheduler."
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.scheduler)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address.",
			},
			"subject": map[string]any{
				"type": "string",
			},
			"body": map[string]any{
				"type": "string",
			},
			"send_now": map[string]any{
				"type":        "boolean",
				"description": "Deliver inline instead of deferring. Set by the job scheduler on the finalize leg.",
				"default":     false,
			},
		},
		"required": []string{"to"},
	}
}
