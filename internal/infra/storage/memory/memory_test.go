package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

func TestRunRepo_SaveGetList(t *testing.T) {
	repo := NewRunRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		run := &domain.Run{
			ID:        id,
			Status:    domain.RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Save(ctx, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := repo.Get(ctx, "mid")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "mid" {
		t.Errorf("expected mid, got %s", got.ID)
	}

	runs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("unexpected order: %v", ids(runs))
	}
}

func TestRunRepo_SaveReplaces(t *testing.T) {
	repo := NewRunRepo()
	ctx := context.Background()

	_ = repo.Save(ctx, &domain.Run{ID: "r", Status: domain.RunStatusAborted})
	_ = repo.Save(ctx, &domain.Run{ID: "r", Status: domain.RunStatusRolledBack})

	got, _ := repo.Get(ctx, "r")
	if got.Status != domain.RunStatusRolledBack {
		t.Errorf("expected rolled_back, got %s", got.Status)
	}
	runs, _ := repo.List(ctx, 0)
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestRunRepo_NotFound(t *testing.T) {
	_, err := NewRunRepo().Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func ids(runs []*domain.Run) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.ID)
	}
	return out
}

func TestRunRepo_DeleteOlderThan(t *testing.T) {
	repo := NewRunRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_ = repo.Save(ctx, &domain.Run{ID: id, StartedAt: base.Add(time.Duration(i) * 24 * time.Hour)})
	}

	n, err := repo.DeleteOlderThan(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	runs, _ := repo.List(ctx, 0)
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Errorf("unexpected runs left: %v", ids(runs))
	}
}
