package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pubflow/pubflow/pkg/protocol"
)

// MemoryStore keeps pending jobs in process memory. Suited to tests and
// single-node deployments without Redis.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Schedule(_ context.Context, key string, payload protocol.JobPayload, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[key] = Job{Key: key, Payload: payload, RunAt: runAt}

	return nil
}

func (s *MemoryStore) Unschedule(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, key)

	return nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job

	for key, job := range s.jobs {
		if !job.RunAt.After(now) {
			due = append(due, job)
			delete(s.jobs, key)
		}
	}

	return due, nil
}

// Pending reports the number of jobs not yet claimed.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}
