package condition

import "fmt"

// EvaluationError reports that a condition tree could not be evaluated. It is
// deliberately distinct from a false result: a firing aborts on it instead of
// silently not running.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("condition evaluation failed for %q: %v", e.Expression, e.Err)
	}

	return fmt.Sprintf("condition evaluation failed: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
