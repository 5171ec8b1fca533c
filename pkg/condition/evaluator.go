// Package condition evaluates nested AND/OR/NOT condition trees that gate
// whether an automation fires.
package condition

import (
	"context"
	"fmt"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/protocol"
)

// Evaluator walks a condition tree and resolves leaf expressions through the
// configured expression evaluator.
type Evaluator struct {
	expressions protocol.ExpressionEvaluator
}

func NewEvaluator(expressions protocol.ExpressionEvaluator) *Evaluator {
	return &Evaluator{expressions: expressions}
}

// Evaluate returns whether the tree holds against env. A nil tree always
// holds: automations without a condition fire unconditionally.
//
// Children are evaluated in author order. AND stops at the first false child
// and OR at the first true one, but an error in an earlier child always wins
// over a later short-circuit: "the condition errored" and "the condition is
// false" are distinct outcomes.
func (e *Evaluator) Evaluate(ctx context.Context, node *models.ConditionNode, env map[string]any) (bool, error) {
	if node == nil {
		return true, nil
	}

	switch node.Type {
	case models.ConditionNodeLeaf:
		return e.evaluateLeaf(ctx, node, env)
	case models.ConditionNodeAnd:
		for _, child := range node.Conditions {
			ok, err := e.Evaluate(ctx, child, env)
			if err != nil {
				return false, err
			}

			if !ok {
				return false, nil
			}
		}

		return true, nil
	case models.ConditionNodeOr:
		for _, child := range node.Conditions {
			ok, err := e.Evaluate(ctx, child, env)
			if err != nil {
				return false, err
			}

			if ok {
				return true, nil
			}
		}

		return false, nil
	case models.ConditionNodeNot:
		if len(node.Conditions) != 1 {
			return false, &EvaluationError{
				Err: fmt.Errorf("%w: NOT block has %d children", models.ErrInvalidBlockArity, len(node.Conditions)),
			}
		}

		ok, err := e.Evaluate(ctx, node.Conditions[0], env)
		if err != nil {
			return false, err
		}

		return !ok, nil
	default:
		return false, &EvaluationError{
			Err: fmt.Errorf("%w: %q", models.ErrInvalidConditionNodeType, node.Type),
		}
	}
}

func (e *Evaluator) evaluateLeaf(ctx context.Context, node *models.ConditionNode, env map[string]any) (bool, error) {
	out, err := e.expressions.Evaluate(ctx, node.Expression, env)
	if err != nil {
		return false, &EvaluationError{Expression: node.Expression, Err: err}
	}

	// An undefined result is falsy; any other non-boolean is an authoring
	// error, never implicitly truthy.
	if out == nil {
		return false, nil
	}

	result, ok := out.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: node.Expression,
			Err:        fmt.Errorf("expression returned %T, expected bool", out),
		}
	}

	return result, nil
}
