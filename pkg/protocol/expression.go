package protocol

import "context"

// ExpressionEvaluator evaluates one leaf expression against an environment.
// Undefined identifiers resolve to nil rather than failing; syntax and type
// errors are returned as errors, never coerced to false.
type ExpressionEvaluator interface {
	Evaluate(ctx context.Context, expression string, env map[string]any) (any, error)
}
