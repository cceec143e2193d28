package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/infra/storage/memory"
)

func TestPruner_Prune(t *testing.T) {
	repo := memory.NewRunRepo()
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, &domain.Run{ID: "old", StartedAt: now.Add(-40 * 24 * time.Hour)})
	_ = repo.Save(ctx, &domain.Run{ID: "recent", StartedAt: now.Add(-2 * 24 * time.Hour)})

	p := NewPruner(repo, 30*24*time.Hour)
	p.now = func() time.Time { return now }

	n, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if _, err := repo.Get(ctx, "recent"); err != nil {
		t.Errorf("recent run was pruned: %v", err)
	}
}

func TestPruner_Disabled(t *testing.T) {
	repo := memory.NewRunRepo()
	ctx := context.Background()
	_ = repo.Save(ctx, &domain.Run{ID: "ancient", StartedAt: time.Unix(0, 0)})

	n, err := NewPruner(repo, 0).Prune(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got n=%d err=%v", n, err)
	}
}
