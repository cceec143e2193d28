package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/luna/internal/core/cleanup"
	"github.com/vietddude/luna/internal/core/config"
	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/ledger"
	"github.com/vietddude/luna/internal/core/worker"
	"github.com/vietddude/luna/internal/installer"
	redisclient "github.com/vietddude/luna/internal/infra/redis"
	"github.com/vietddude/luna/internal/infra/storage"
	filestore "github.com/vietddude/luna/internal/infra/storage/file"
	"github.com/vietddude/luna/internal/infra/storage/memory"
	"github.com/vietddude/luna/internal/infra/storage/postgres"
	"github.com/vietddude/luna/internal/metrics"
)

// App wires configuration, the run history store and the installer.
type App struct {
	cfg   *config.AppConfig
	store storage.RunRepository
	deps  installer.Deps
}

// NewApp opens the configured run history store.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, store: store}, nil
}

// OpenStore connects the run history backend selected in cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.RunRepository, error) {
	switch cfg.Backend {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("Using PostgreSQL storage")
		return postgres.NewRunRepo(db), nil

	case "redis":
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis storage")
		return redisclient.NewRunRepo(client, cfg.Redis.Retention), nil

	case "memory":
		slog.Warn("Using Memory storage, run history is lost on exit")
		return memory.NewRunRepo(), nil

	case "file", "":
		repo, err := filestore.NewRunRepo(cfg.File)
		if err != nil {
			return nil, domain.NewError(domain.KindConfig, "open run history", cfg.File.Dir, err)
		}
		slog.Info("Using file storage", "dir", cfg.File.Dir)
		return repo, nil

	default:
		return nil, domain.NewError(domain.KindConfig, "open run history", "", fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}
}

// WithDeps overrides installer collaborators.
func (a *App) WithDeps(deps installer.Deps) *App {
	a.deps = deps
	return a
}

// Install runs the installer. confirm, when set, is asked before each retry.
func (a *App) Install(ctx context.Context, confirm func(attempt int, err error) bool) (*installer.Report, error) {
	deps := a.deps
	deps.Store = a.store
	if confirm != nil {
		deps.Confirm = confirm
	}
	report, err := installer.New(a.cfg, deps).Run(ctx)
	if _, pruneErr := a.Prune(context.WithoutCancel(ctx)); pruneErr != nil {
		slog.Warn("Run history not pruned", "error", pruneErr)
	}
	return report, err
}

// Prune deletes runs older than the configured retention.
func (a *App) Prune(ctx context.Context) (int, error) {
	return worker.NewPruner(a.store, a.cfg.Storage.Retention).Prune(ctx)
}

// History lists stored runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]*domain.Run, error) {
	return a.store.List(ctx, limit)
}

// Rollback removes the directories a stored run created and marks the run
// rolled back. Directories that already existed before that run are kept.
func (a *App) Rollback(ctx context.Context, id string) (*domain.Run, *cleanup.Record, error) {
	run, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	cleaner := cleanup.NewCleaner(a.cfg.Cleanup.CriticalPaths)
	rec, cleanupErr := cleaner.Rollback(ledger.FromRun(run), nil)
	cleaner.Validate(rec)
	metrics.ObserveCleanup(rec)

	run.Status = domain.RunStatusRolledBack
	if cleanupErr != nil {
		run.Status = domain.RunStatusAborted
		run.Errors = append(run.Errors, fmt.Sprintf("rollback stopped: %v", cleanupErr))
	}
	run.Warnings = append(run.Warnings, rec.Warnings...)
	for _, p := range rec.FailedTargets {
		run.Errors = append(run.Errors, fmt.Sprintf("rollback could not remove %s", p))
	}

	if err := a.store.Save(ctx, run); err != nil {
		return run, rec, errors.Join(cleanupErr, fmt.Errorf("failed to save run: %w", err))
	}
	slog.Info("Rolled back run", "run_id", id, "removed", rec.Succeeded, "failed", rec.Failed)
	return run, rec, cleanupErr
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}
