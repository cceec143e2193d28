package storage

import (
	"context"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// RunRepository persists installer run records.
type RunRepository interface {
	// Save inserts or replaces a run
	Save(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by id, domain.ErrRunNotFound if absent
	Get(ctx context.Context, id string) (*domain.Run, error)

	// List returns up to limit runs, newest first. limit <= 0 means all
	List(ctx context.Context, limit int) ([]*domain.Run, error)

	// DeleteOlderThan removes runs started before the given time and returns
	// how many were removed
	DeleteOlderThan(ctx context.Context, before time.Time) (int, error)

	// Close releases the backing connection
	Close() error
}
