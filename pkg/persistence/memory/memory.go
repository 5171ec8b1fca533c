// Package memory provides an in-memory persistence implementation for tests
// and local development.
package memory

import (
	"context"
	"sync"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// Persistence keeps the whole store in process memory. Transactions clone the
// state, run against the clone, and swap it in on success, so rollback and
// atomic commit behave like the SQL implementation. A single lock serializes
// all transactions, which trivially satisfies the serializable mode required
// for automation graph edits.
type Persistence struct {
	mu sync.Mutex
	st *state
}

type state struct {
	pubs        map[string]*models.Pub
	instances   map[string]*models.ActionInstance
	automations map[string]*models.Automation
	runs        map[string]*models.ActionRun
	history     []*models.PubValueChange
}

func newState() *state {
	return &state{
		pubs:        make(map[string]*models.Pub),
		instances:   make(map[string]*models.ActionInstance),
		automations: make(map[string]*models.Automation),
		runs:        make(map[string]*models.ActionRun),
	}
}

func (s *state) clone() *state {
	next := newState()

	for id, pub := range s.pubs {
		next.pubs[id] = clonePub(pub)
	}

	for id, instance := range s.instances {
		copied := *instance
		copied.Configuration = cloneMap(instance.Configuration)
		next.instances[id] = &copied
	}

	for id, automation := range s.automations {
		copied := *automation
		next.automations[id] = &copied
	}

	for id, run := range s.runs {
		copied := *run
		next.runs[id] = &copied
	}

	next.history = make([]*models.PubValueChange, len(s.history))
	copy(next.history, s.history)

	return next
}

func clonePub(pub *models.Pub) *models.Pub {
	copied := *pub
	copied.Values = cloneMap(pub.Values)

	return &copied
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{st: newState()}
}

func (p *Persistence) Pubs() persistence.PubRepository {
	return &pubRepository{p: p}
}

func (p *Persistence) ActionInstances() persistence.ActionInstanceRepository {
	return &actionInstanceRepository{p: p}
}

func (p *Persistence) Automations() persistence.AutomationRepository {
	return &automationRepository{p: p}
}

func (p *Persistence) ActionRuns() persistence.ActionRunRepository {
	return &actionRunRepository{p: p}
}

func (p *Persistence) History() persistence.HistoryRepository {
	return &historyRepository{p: p}
}

// WithinTx runs fn against a cloned state and commits it on success.
func (p *Persistence) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := &txPersistence{st: p.st.clone()}

	if err := fn(tx); err != nil {
		return err
	}

	p.st = tx.st

	return nil
}

// WithinSerializableTx is identical to WithinTx here: the store lock already
// serializes every transaction.
func (p *Persistence) WithinSerializableTx(ctx context.Context, fn persistence.TxFunc) error {
	return p.WithinTx(ctx, fn)
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}

// txPersistence is the transactional view handed to TxFunc. Its repositories
// operate on the clone without locking; the owning Persistence holds its lock
// for the transaction's whole extent.
type txPersistence struct {
	st *state
}

func (t *txPersistence) Pubs() persistence.PubRepository {
	return &pubRepository{tx: t}
}

func (t *txPersistence) ActionInstances() persistence.ActionInstanceRepository {
	return &actionInstanceRepository{tx: t}
}

func (t *txPersistence) Automations() persistence.AutomationRepository {
	return &automationRepository{tx: t}
}

func (t *txPersistence) ActionRuns() persistence.ActionRunRepository {
	return &actionRunRepository{tx: t}
}

func (t *txPersistence) History() persistence.HistoryRepository {
	return &historyRepository{tx: t}
}

func (t *txPersistence) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	// Nested transactions join the enclosing one.
	return fn(t)
}

func (t *txPersistence) WithinSerializableTx(ctx context.Context, fn persistence.TxFunc) error {
	return fn(t)
}

func (t *txPersistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (t *txPersistence) Close(ctx context.Context) error {
	return nil
}
