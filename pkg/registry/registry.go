// Package registry holds the action factories available to the engine,
// keyed by action-type tag.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pubflow/pubflow/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// CreateAction builds an action of the given type from a merged configuration,
// validating the configuration against the factory's schema first.
func (r *Registry) CreateAction(ctx context.Context, actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, fmt.Errorf("invalid configuration for action type '%s': %w", actionType, err)
	}

	return factory.Create(ctx, config)
}

// ActionTypes returns the registered action-type tags, sorted.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	sort.Strings(types)

	return types
}

// ActionFactory returns the factory for an action type, for schema and
// metadata introspection.
func (r *Registry) ActionFactory(actionType string) (protocol.ActionFactory, bool) {
	factory, ok := r.actionFactories[actionType]

	return factory, ok
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.actionFactories) == 0 {
		return "No action factories registered", false
	}

	return fmt.Sprintf("%d action factories registered", len(r.actionFactories)), true
}
