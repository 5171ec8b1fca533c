// Package postgresql provides PostgreSQL persistence for pubs, automations
// and action runs.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/persistence/sqlbase"
)

// pq error code class 40: transaction rollback.
const pqSerializationFailure = "40001"

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// repositories work both inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	pubs            *PubRepository
	actionInstances *ActionInstanceRepository
	automations     *AutomationRepository
	actionRuns      *ActionRunRepository
	history         *HistoryRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newPersistence(database, database, logger), nil
}

func newPersistence(db *sql.DB, q querier, logger *slog.Logger) *Persistence {
	return &Persistence{
		db:              db,
		logger:          logger,
		pubs:            NewPubRepository(q, logger),
		actionInstances: NewActionInstanceRepository(q, logger),
		automations:     NewAutomationRepository(q, logger),
		actionRuns:      NewActionRunRepository(q, logger),
		history:         NewHistoryRepository(q, logger),
	}
}

func (p *Persistence) Pubs() persistence.PubRepository { return p.pubs }

func (p *Persistence) ActionInstances() persistence.ActionInstanceRepository {
	return p.actionInstances
}

func (p *Persistence) Automations() persistence.AutomationRepository { return p.automations }

func (p *Persistence) ActionRuns() persistence.ActionRunRepository { return p.actionRuns }

func (p *Persistence) History() persistence.HistoryRepository { return p.history }

// WithinTx runs fn against a read-committed transaction, committing when fn
// returns nil and rolling back otherwise.
func (p *Persistence) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	return p.withinTx(ctx, nil, fn)
}

// WithinSerializableTx runs fn at serializable isolation. A serialization
// failure surfaces as persistence.ErrSerializationFailure so the caller can
// decide to retry.
func (p *Persistence) WithinSerializableTx(ctx context.Context, fn persistence.TxFunc) error {
	return p.withinTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (p *Persistence) withinTx(ctx context.Context, opts *sql.TxOptions, fn persistence.TxFunc) error {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txPersistence := newPersistence(p.db, tx, p.logger)

	if err := fn(txPersistence); err != nil {
		_ = tx.Rollback()

		return mapSerializationFailure(err)
	}

	if err := tx.Commit(); err != nil {
		return mapSerializationFailure(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

func mapSerializationFailure(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqSerializationFailure {
		return fmt.Errorf("%w: %v", persistence.ErrSerializationFailure, err)
	}

	return err
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
