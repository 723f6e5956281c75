// Package store persists job records. All writes to one job come from
// the single worker that owns it, so implementations only need to make
// individual operations atomic.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/voxsplit/api/internal/model"
)

// JobStore is the job record repository. Get returns a snapshot that
// callers may mutate freely; changes become visible only through Save.
type JobStore interface {
	Save(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Delete(ctx context.Context, jobID string) error
}

// MemoryStore is an in-process JobStore for tests and Redis-less
// development. Records round-trip through JSON so snapshots behave
// like the Redis-backed store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs[job.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	data, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrJobNotFound
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}
