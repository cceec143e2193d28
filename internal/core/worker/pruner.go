package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/luna/internal/infra/storage"
)

// Pruner deletes run history older than the retention period.
type Pruner struct {
	repo      storage.RunRepository
	retention time.Duration
	now       func() time.Time
}

// NewPruner creates a pruner. A retention of zero or less disables it.
func NewPruner(repo storage.RunRepository, retention time.Duration) *Pruner {
	return &Pruner{repo: repo, retention: retention, now: time.Now}
}

// Prune removes expired runs once and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.retention <= 0 {
		return 0, nil // Retention disabled
	}

	threshold := p.now().Add(-p.retention)
	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune run history", "before", threshold, "error", err)
		return 0, err
	}
	if n > 0 {
		slog.Info("Pruned run history", "deleted", n, "before", threshold)
	}
	return n, nil
}
