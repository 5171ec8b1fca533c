// Package transform provides an action that writes a computed value into a
// pub field. The expression is evaluated against the same environment as
// condition leaves.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/protocol"
)

var ErrFieldRequired = errors.New("transform action requires a field")

type Action struct {
	Field      string
	Expression string

	expressions protocol.ExpressionEvaluator
}

func NewAction(config map[string]any, expressions protocol.ExpressionEvaluator) (*Action, error) {
	field, _ := config["field"].(string)
	expression, _ := config["expression"].(string)

	if field == "" {
		return nil, ErrFieldRequired
	}

	return &Action{
		Field:       field,
		Expression:  expression,
		expressions: expressions,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
	logger = logger.With("action_type", "transform", "field", a.Field)

	value, err := a.expressions.Evaluate(ctx, a.Expression, execCtx.ConditionEnv())
	if err != nil {
		return models.ActionRunResult{}, fmt.Errorf("failed to evaluate transform expression: %w", err)
	}

	execCtx.SetValue(a.Field, value)
	logger.InfoContext(ctx, "Transformed pub value")

	return models.Succeeded(
		fmt.Sprintf("set field %s", a.Field),
		map[string]any{"field": a.Field, "value": value},
	), nil
}
