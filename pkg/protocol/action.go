// Package protocol defines the interfaces between the engine and its
// pluggable collaborators: action implementations, the expression evaluator
// used by condition leaves, and the deferred job scheduler.
package protocol

import (
	"context"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
)

// Action is one configured, runnable action implementation. Execute reports
// domain failures through the failure result shape; a returned error is
// treated the same way by the engine, so implementations may use whichever is
// more natural. Implementations own their timeouts: the engine has no
// cancellation primitive beyond ctx, and a blocked action blocks its
// triggering transaction.
type Action interface {
	Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error)
}

// ActionFactory creates action instances and describes the action type.
type ActionFactory interface {
	// ID returns the action-type tag stored on action instances.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Create builds an action from a merged configuration.
	Create(ctx context.Context, config map[string]any) (Action, error)

	// Schema returns the JSON schema for configuring this action type.
	Schema() map[string]any
}
