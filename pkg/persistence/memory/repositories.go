package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// access runs fn against the right state: the transaction clone when inside a
// transaction, otherwise the live state under the store lock (auto-commit).
type access struct {
	p  *Persistence
	tx *txPersistence
}

func (a access) with(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx.st)
	}

	a.p.mu.Lock()
	defer a.p.mu.Unlock()

	return fn(a.p.st)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

type pubRepository struct {
	p  *Persistence
	tx *txPersistence
}

func (r *pubRepository) acc() access { return access{p: r.p, tx: r.tx} }

func (r *pubRepository) GetByID(ctx context.Context, id string) (*models.Pub, error) {
	var pub *models.Pub

	err := r.acc().with(func(st *state) error {
		stored, ok := st.pubs[id]
		if !ok {
			return persistence.NewStoreError("GetByID", "pub", id, persistence.ErrPubNotFound)
		}

		pub = clonePub(stored)

		return nil
	})

	return pub, err
}

func (r *pubRepository) Save(ctx context.Context, pub *models.Pub) error {
	return r.acc().with(func(st *state) error {
		now := time.Now().UTC()

		if pub.ID == "" {
			pub.ID = newID()
		}

		if pub.CreatedAt.IsZero() {
			pub.CreatedAt = now
		}

		pub.UpdatedAt = now
		st.pubs[pub.ID] = clonePub(pub)

		return nil
	})
}

func (r *pubRepository) UpdateValue(ctx context.Context, pubID, fieldID string, value any) error {
	return r.acc().with(func(st *state) error {
		pub, ok := st.pubs[pubID]
		if !ok {
			return persistence.NewStoreError("UpdateValue", "pub", pubID, persistence.ErrPubNotFound)
		}

		if pub.Values == nil {
			pub.Values = map[string]any{}
		}

		pub.Values[fieldID] = value
		pub.UpdatedAt = time.Now().UTC()

		return nil
	})
}

func (r *pubRepository) UpdateStage(ctx context.Context, pubID, stageID string) error {
	return r.acc().with(func(st *state) error {
		pub, ok := st.pubs[pubID]
		if !ok {
			return persistence.NewStoreError("UpdateStage", "pub", pubID, persistence.ErrPubNotFound)
		}

		pub.StageID = stageID
		pub.UpdatedAt = time.Now().UTC()

		return nil
	})
}

type actionInstanceRepository struct {
	p  *Persistence
	tx *txPersistence
}

func (r *actionInstanceRepository) acc() access { return access{p: r.p, tx: r.tx} }

func (r *actionInstanceRepository) GetByID(ctx context.Context, id string) (*models.ActionInstance, error) {
	var instance *models.ActionInstance

	err := r.acc().with(func(st *state) error {
		stored, ok := st.instances[id]
		if !ok {
			return persistence.NewStoreError("GetByID", "action instance", id, persistence.ErrActionInstanceNotFound)
		}

		copied := *stored
		copied.Configuration = cloneMap(stored.Configuration)
		instance = &copied

		return nil
	})

	return instance, err
}

func (r *actionInstanceRepository) ListByStage(ctx context.Context, stageID string) ([]*models.ActionInstance, error) {
	var instances []*models.ActionInstance

	err := r.acc().with(func(st *state) error {
		for _, stored := range st.instances {
			if stored.StageID != stageID {
				continue
			}

			copied := *stored
			copied.Configuration = cloneMap(stored.Configuration)
			instances = append(instances, &copied)
		}

		sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })

		return nil
	})

	return instances, err
}

func (r *actionInstanceRepository) Save(ctx context.Context, instance *models.ActionInstance) error {
	return r.acc().with(func(st *state) error {
		now := time.Now().UTC()

		if instance.ID == "" {
			instance.ID = newID()
		}

		if instance.CreatedAt.IsZero() {
			instance.CreatedAt = now
		}

		instance.UpdatedAt = now

		copied := *instance
		copied.Configuration = cloneMap(instance.Configuration)
		st.instances[instance.ID] = &copied

		return nil
	})
}

// Delete removes the instance and cascades to every automation referencing it
// as target or source.
func (r *actionInstanceRepository) Delete(ctx context.Context, id string) error {
	return r.acc().with(func(st *state) error {
		if _, ok := st.instances[id]; !ok {
			return persistence.NewStoreError("Delete", "action instance", id, persistence.ErrActionInstanceNotFound)
		}

		delete(st.instances, id)

		for automationID, automation := range st.automations {
			if automation.ActionInstanceID == id || automation.Source() == id {
				delete(st.automations, automationID)
			}
		}

		return nil
	})
}

type automationRepository struct {
	p  *Persistence
	tx *txPersistence
}

func (r *automationRepository) acc() access { return access{p: r.p, tx: r.tx} }

func (r *automationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	var automation *models.Automation

	err := r.acc().with(func(st *state) error {
		stored, ok := st.automations[id]
		if !ok {
			return persistence.NewStoreError("GetByID", "automation", id, persistence.ErrAutomationNotFound)
		}

		copied := *stored
		automation = &copied

		return nil
	})

	return automation, err
}

func (r *automationRepository) ListByStage(ctx context.Context, stageID string) ([]*models.Automation, error) {
	return r.list(func(a *models.Automation) bool { return a.StageID == stageID })
}

func (r *automationRepository) ListForEvent(ctx context.Context, stageID string, event models.AutomationEvent) ([]*models.Automation, error) {
	return r.list(func(a *models.Automation) bool {
		return a.StageID == stageID && a.Event == event && !a.IsSequential()
	})
}

func (r *automationRepository) ListBySource(ctx context.Context, sourceActionInstanceID string, event models.AutomationEvent) ([]*models.Automation, error) {
	return r.list(func(a *models.Automation) bool {
		return a.Source() == sourceActionInstanceID && a.Event == event
	})
}

func (r *automationRepository) list(match func(*models.Automation) bool) ([]*models.Automation, error) {
	var automations []*models.Automation

	err := r.acc().with(func(st *state) error {
		for _, stored := range st.automations {
			if !match(stored) {
				continue
			}

			copied := *stored
			automations = append(automations, &copied)
		}

		sort.Slice(automations, func(i, j int) bool { return automations[i].ID < automations[j].ID })

		return nil
	})

	return automations, err
}

func (r *automationRepository) Save(ctx context.Context, automation *models.Automation) error {
	return r.acc().with(func(st *state) error {
		now := time.Now().UTC()

		if automation.ID == "" {
			automation.ID = newID()
		}

		if automation.CreatedAt.IsZero() {
			automation.CreatedAt = now
		}

		automation.UpdatedAt = now

		copied := *automation
		st.automations[automation.ID] = &copied

		return nil
	})
}

func (r *automationRepository) Delete(ctx context.Context, id string) error {
	return r.acc().with(func(st *state) error {
		if _, ok := st.automations[id]; !ok {
			return persistence.NewStoreError("Delete", "automation", id, persistence.ErrAutomationNotFound)
		}

		delete(st.automations, id)

		return nil
	})
}

type actionRunRepository struct {
	p  *Persistence
	tx *txPersistence
}

func (r *actionRunRepository) acc() access { return access{p: r.p, tx: r.tx} }

func (r *actionRunRepository) Create(ctx context.Context, run *models.ActionRun) error {
	return r.acc().with(func(st *state) error {
		if run.ID == "" {
			run.ID = newID()
		}

		if run.CreatedAt.IsZero() {
			run.CreatedAt = time.Now().UTC()
		}

		copied := *run
		st.runs[run.ID] = &copied

		return nil
	})
}

func (r *actionRunRepository) GetByID(ctx context.Context, id string) (*models.ActionRun, error) {
	var run *models.ActionRun

	err := r.acc().with(func(st *state) error {
		stored, ok := st.runs[id]
		if !ok {
			return persistence.NewStoreError("GetByID", "action run", id, persistence.ErrActionRunNotFound)
		}

		copied := *stored
		run = &copied

		return nil
	})

	return run, err
}

func (r *actionRunRepository) ListByPub(ctx context.Context, pubID string) ([]*models.ActionRun, error) {
	var runs []*models.ActionRun

	err := r.acc().with(func(st *state) error {
		for _, stored := range st.runs {
			if stored.PubID != pubID {
				continue
			}

			copied := *stored
			runs = append(runs, &copied)
		}

		// Newest first, matching the SQL implementation.
		sort.Slice(runs, func(i, j int) bool {
			if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
				return runs[i].ID > runs[j].ID
			}

			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		})

		return nil
	})

	return runs, err
}

type historyRepository struct {
	p  *Persistence
	tx *txPersistence
}

func (r *historyRepository) acc() access { return access{p: r.p, tx: r.tx} }

func (r *historyRepository) Append(ctx context.Context, change *models.PubValueChange) error {
	return r.acc().with(func(st *state) error {
		if change.ID == "" {
			change.ID = newID()
		}

		if change.CreatedAt.IsZero() {
			change.CreatedAt = time.Now().UTC()
		}

		copied := *change
		st.history = append(st.history, &copied)

		return nil
	})
}

// ListByPub returns a pub's changes newest first.
func (r *historyRepository) ListByPub(ctx context.Context, pubID string) ([]*models.PubValueChange, error) {
	changes, err := r.listHistory(func(c *models.PubValueChange) bool { return c.PubID == pubID })
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
		changes[i], changes[j] = changes[j], changes[i]
	}

	return changes, nil
}

func (r *historyRepository) ListByActionRun(ctx context.Context, actionRunID string) ([]*models.PubValueChange, error) {
	return r.listHistory(func(c *models.PubValueChange) bool { return c.ActionRunID == actionRunID })
}

func (r *historyRepository) listHistory(match func(*models.PubValueChange) bool) ([]*models.PubValueChange, error) {
	var changes []*models.PubValueChange

	err := r.acc().with(func(st *state) error {
		for _, stored := range st.history {
			if !match(stored) {
				continue
			}

			copied := *stored
			changes = append(changes, &copied)
		}

		return nil
	})

	return changes, err
}
