// Package log provides an action that writes a message to the process log.
package log

import (
	"context"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
	logger = logger.With("action_type", "log", "pub_id", execCtx.Pub().ID)

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, a.Message)
	case "warn", "warning":
		logger.WarnContext(ctx, a.Message)
	case "error":
		logger.ErrorContext(ctx, a.Message)
	default:
		logger.InfoContext(ctx, a.Message)
	}

	return models.Succeeded("logged message", map[string]any{
		"message": a.Message,
		"level":   a.Level,
	}), nil
}
