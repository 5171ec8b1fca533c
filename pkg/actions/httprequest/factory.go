package httprequest

import (
	"context"

	"github.com/pubflow/pubflow/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "httprequest"
}

func (*ActionFactory) Name() string {
	return "HTTP Import"
}

func (*ActionFactory) Description() string {
	return "Imports data from an external source over HTTP and stores the response into a pub field."
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "External source URL.",
			},
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type": "object",
			},
			"body": map[string]any{
				"type": "string",
			},
			"field": map[string]any{
				"type":        "string",
				"description": "Pub field to store the imported payload into.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds.",
				"default":     30,
			},
		},
		"required": []string{"url"},
	}
}
