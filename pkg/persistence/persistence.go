// Package persistence defines the storage contracts for the automation engine.
package persistence

import (
	"context"

	"github.com/pubflow/pubflow/pkg/models"
)

// TxFunc runs against a transactional view of the store. Returning an error
// rolls back everything the function wrote.
type TxFunc func(tx Persistence) error

// Persistence is the transactional handle the engine runs against.
//
// WithinTx gives read-committed semantics and is what a trigger firing runs
// inside: the action run, the value writes and the history rows commit or
// roll back together. WithinSerializableTx is required for automation graph
// edits, where two concurrent writers validating against a stale snapshot
// could together close a cycle.
type Persistence interface {
	Pubs() PubRepository
	ActionInstances() ActionInstanceRepository
	Automations() AutomationRepository
	ActionRuns() ActionRunRepository
	History() HistoryRepository

	WithinTx(ctx context.Context, fn TxFunc) error
	WithinSerializableTx(ctx context.Context, fn TxFunc) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PubRepository reads and writes pubs and their values.
type PubRepository interface {
	GetByID(ctx context.Context, id string) (*models.Pub, error)
	Save(ctx context.Context, pub *models.Pub) error
	UpdateValue(ctx context.Context, pubID, fieldID string, value any) error
	UpdateStage(ctx context.Context, pubID, stageID string) error
}

// ActionInstanceRepository reads and writes configured action instances.
// Deleting an instance cascades to its automations, both as target and as
// source.
type ActionInstanceRepository interface {
	GetByID(ctx context.Context, id string) (*models.ActionInstance, error)
	ListByStage(ctx context.Context, stageID string) ([]*models.ActionInstance, error)
	Save(ctx context.Context, instance *models.ActionInstance) error
	Delete(ctx context.Context, id string) error
}

// AutomationRepository reads and writes trigger rules. Save is insert-or-
// replace by ID; the graph validator decides whether a save is admissible.
type AutomationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	ListByStage(ctx context.Context, stageID string) ([]*models.Automation, error)

	// ListForEvent returns regular automations matching a stage lifecycle
	// event; ListBySource returns sequential automations sourced from one
	// action instance's completion.
	ListForEvent(ctx context.Context, stageID string, event models.AutomationEvent) ([]*models.Automation, error)
	ListBySource(ctx context.Context, sourceActionInstanceID string, event models.AutomationEvent) ([]*models.Automation, error)

	Save(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error
}

// ActionRunRepository appends and reads immutable run records.
type ActionRunRepository interface {
	Create(ctx context.Context, run *models.ActionRun) error
	GetByID(ctx context.Context, id string) (*models.ActionRun, error)
	ListByPub(ctx context.Context, pubID string) ([]*models.ActionRun, error)
}

// HistoryRepository appends and reads pub value change rows. Append-only:
// there is deliberately no update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, change *models.PubValueChange) error
	ListByPub(ctx context.Context, pubID string) ([]*models.PubValueChange, error)
	ListByActionRun(ctx context.Context, actionRunID string) ([]*models.PubValueChange, error)
}
