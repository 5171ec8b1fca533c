package transform

import (
	"context"

	"github.com/pubflow/pubflow/pkg/protocol"
)

type ActionFactory struct {
	expressions protocol.ExpressionEvaluator
}

func NewActionFactory(expressions protocol.ExpressionEvaluator) *ActionFactory {
	return &ActionFactory{expressions: expressions}
}

func (*ActionFactory) ID() string {
	return "transform"
}

func (*ActionFactory) Name() string {
	return "Transform"
}

func (*ActionFactory) Description() string {
	return "Evaluates an expression against the pub and writes the result into a field."
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.expressions)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Pub field to write the result into.",
			},
			"expression": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Expression evaluated against the pub's values, title, status and stage.",
				"examples": []string{
					`title + " (reviewed)"`,
					`status == "draft" ? "needs review" : "done"`,
				},
			},
		},
		"required": []string{"field", "expression"},
	}
}
