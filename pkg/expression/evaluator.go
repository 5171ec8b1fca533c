// Package expression evaluates condition leaf expressions with expr-lang.
package expression

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs expr-lang expressions. Compiled programs are
// cached by source text; condition trees are immutable so the cache never goes
// stale. Undefined identifiers resolve to nil instead of failing, matching the
// engine's "missing field is falsy" rule.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

func (e *Evaluator) Evaluate(_ context.Context, expression string, env map[string]any) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}

	program, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
	}

	if env == nil {
		env = map[string]any{}
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return out, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()

	return program, nil
}
