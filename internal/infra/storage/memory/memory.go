package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// RunRepo keeps runs in process memory. History does not survive the process.
type RunRepo struct {
	runs map[string]*domain.Run
	mu   sync.RWMutex
}

func NewRunRepo() *RunRepo {
	return &RunRepo{runs: make(map[string]*domain.Run)}
}

func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *RunRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, run := range r.runs {
		if run.StartedAt.Before(before) {
			delete(r.runs, id)
			n++
		}
	}
	return n, nil
}

func (r *RunRepo) Close() error { return nil }
