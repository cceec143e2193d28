package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/vietddude/luna/internal/core/cleanup"
	"github.com/vietddude/luna/internal/core/config"
	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/ledger"
	"github.com/vietddude/luna/internal/core/retry"
	"github.com/vietddude/luna/internal/infra/archive"
	"github.com/vietddude/luna/internal/infra/download"
	"github.com/vietddude/luna/internal/infra/shell"
	"github.com/vietddude/luna/internal/infra/shortcut"
	"github.com/vietddude/luna/internal/infra/storage"
	"github.com/vietddude/luna/internal/metrics"
)

// Downloader fetches a URL to a local file.
type Downloader interface {
	Fetch(ctx context.Context, url, dest string, progress download.ProgressFunc) (int64, error)
}

// ExclusionManager adds antivirus exclusions.
type ExclusionManager interface {
	AddExclusion(ctx context.Context, path string) error
}

// Extractor unpacks an archive into destDir and returns the written files.
type Extractor func(src, destDir string, flatten bool) ([]string, error)

// Deps are the installer's collaborators. Nil fields get the real
// implementation.
type Deps struct {
	Downloader Downloader
	Extract    Extractor
	Exclusions ExclusionManager
	Shortcuts  shortcut.Creator
	Elevated   func() (bool, error)
	SteamPath  func() (string, error)
	Cleaner    *cleanup.Cleaner
	Store      storage.RunRepository
	Confirm    retry.ConfirmFunc
}

// Report is what a run leaves behind.
type Report struct {
	Run     *domain.Run
	Cleanup *cleanup.Record
}

// Installer migrates legacy GreenLuma and Koalageddon installs into Luna.
type Installer struct {
	cfg    *config.AppConfig
	deps   Deps
	policy retry.Policy
}

// New creates an installer for cfg.
func New(cfg *config.AppConfig, deps Deps) *Installer {
	if deps.Downloader == nil {
		deps.Downloader = download.NewClient(cfg.Download.Timeout, cfg.Download.UserAgent)
	}
	if deps.Extract == nil {
		deps.Extract = archive.Extract
	}
	if deps.Exclusions == nil {
		deps.Exclusions = shell.NewDefender(shell.NewExecRunner())
	}
	if deps.Shortcuts == nil {
		dir, err := shortcut.DesktopDir()
		if err != nil {
			slog.Warn("Falling back to install dir for shortcuts", "error", err)
			dir = cfg.Paths.InstallDir
		}
		deps.Shortcuts = shortcut.New(dir)
	}
	if deps.Elevated == nil {
		deps.Elevated = shell.IsElevated
	}
	if deps.SteamPath == nil {
		deps.SteamPath = steamPath
	}
	if deps.Cleaner == nil {
		deps.Cleaner = cleanup.NewCleaner(cfg.Cleanup.CriticalPaths)
	}

	policy := retry.DefaultPolicy
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay
	policy.Jitter = cfg.Retry.Jitter
	if deps.Confirm != nil {
		policy = policy.WithConfirm(serialConfirm(deps.Confirm))
	}

	return &Installer{cfg: cfg, deps: deps, policy: policy}
}

// run holds the state of one installer run.
type run struct {
	id     string
	log    *slog.Logger
	ledger *ledger.Ledger
	report ledger.Reporter
	temps  *cleanup.Registry
	legacy Legacy
	// set when elevation is missing but not required
	skipExclusions bool
	// archive path per source name, for sources that downloaded
	mu         sync.Mutex
	downloaded map[string]string
}

// Run executes every step. Recoverable failures are recorded and the run
// continues. A fatal failure rolls back what the run created and is returned
// unchanged, together with the report.
func (i *Installer) Run(ctx context.Context) (*Report, error) {
	l := ledger.New()
	r := &run{
		id:         uuid.NewString(),
		ledger:     l,
		temps:      cleanup.NewRegistry(),
		downloaded: make(map[string]string),
	}
	r.log = slog.Default().With("run_id", r.id)
	r.report = ledger.NewLoggingReporter(l, r.log, metrics.ObserveOutcome)

	r.log.Info("Starting Luna setup", "install_dir", i.cfg.Paths.InstallDir)

	steps := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{"privileges", i.checkPrivileges},
		{"detect", i.detectLegacy},
		{"directories", i.createDirectories},
		{"downloads", i.downloadSources},
		{"extraction", i.extractSources},
		{"migration", i.migrateLegacy},
		{"configs", i.patchConfigs},
		{"exclusions", i.addExclusions},
		{"shortcuts", i.createShortcuts},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return i.abort(ctx, r, domain.NewError(domain.KindInterrupted, step.name, "", err))
		}
		r.log.Debug("Running step", "step", step.name)
		if err := step.fn(ctx, r); err != nil {
			return i.abort(ctx, r, err)
		}
	}
	return i.finish(ctx, r)
}

// finish removes temporary files and persists a completed run.
func (i *Installer) finish(ctx context.Context, r *run) (*Report, error) {
	items := i.deps.Cleaner.Plan(nil, r.temps)
	rec, err := i.deps.Cleaner.Run(items)
	if err != nil {
		r.report.Warn(fmt.Sprintf("temporary file cleanup: %v", err))
	}
	for _, p := range rec.FailedTargets {
		r.report.Warn(fmt.Sprintf("could not remove temporary file %s", p))
	}

	r.ledger.Finish()
	snapshot := r.ledger.Snapshot(r.id, domain.RunStatusCompleted)
	i.persist(ctx, r, snapshot, nil)

	r.log.Info("Luna setup finished",
		"success_ratio", snapshot.SuccessRatio,
		"errors", len(snapshot.Errors),
		"warnings", len(snapshot.Warnings),
	)
	return &Report{Run: snapshot}, nil
}

// abort rolls back the run and returns cause unchanged.
func (i *Installer) abort(ctx context.Context, r *run, cause error) (*Report, error) {
	r.log.Error("Aborting Luna setup, rolling back", "kind", domain.KindOf(cause), "error", cause)
	r.report.Error(cause.Error())

	status := domain.RunStatusRolledBack
	rec, err := i.deps.Cleaner.Rollback(r.ledger, r.temps)
	if err != nil {
		status = domain.RunStatusAborted
		r.report.Error(fmt.Sprintf("rollback stopped: %v", err))
	}
	for _, w := range i.deps.Cleaner.Validate(rec) {
		r.report.Warn(w)
	}

	r.ledger.Finish()
	snapshot := r.ledger.Snapshot(r.id, status)
	i.persist(ctx, r, snapshot, rec)
	return &Report{Run: snapshot, Cleanup: rec}, cause
}

// persist stores the run and exports metrics. Failures are logged only; they
// never change the outcome of the run.
func (i *Installer) persist(ctx context.Context, r *run, snapshot *domain.Run, rec *cleanup.Record) {
	if host, err := os.Hostname(); err == nil {
		snapshot.Host = host
	}

	if i.deps.Store != nil {
		// the run context may already be cancelled
		saveCtx := context.WithoutCancel(ctx)
		if err := i.deps.Store.Save(saveCtx, snapshot); err != nil {
			r.log.Warn("Failed to save run", "error", err)
		}
	}

	metrics.ObserveRun(snapshot)
	metrics.ObserveCleanup(rec)
	if err := metrics.WriteTextfile(i.cfg.Metrics.Textfile); err != nil {
		r.log.Warn("Failed to write metrics", "error", err)
	}
}

// serialConfirm lets concurrent downloads share one interactive prompt.
func serialConfirm(confirm retry.ConfirmFunc) retry.ConfirmFunc {
	var mu sync.Mutex
	return func(attempt int, err error) bool {
		mu.Lock()
		defer mu.Unlock()
		return confirm(attempt, err)
	}
}

// fatal reports whether err must abort the run.
func fatal(err error) bool {
	return err != nil && (domain.KindOf(err).Fatal() || errors.Is(err, cleanup.ErrCritical))
}
