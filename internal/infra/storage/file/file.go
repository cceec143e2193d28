package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

const ext = ".json"

// Config holds the directory run records are written to.
type Config struct {
	Dir string `yaml:"dir"`
}

// RunRepo keeps one JSON file per run, so history survives the process.
type RunRepo struct {
	dir string
	mu  sync.RWMutex
}

// NewRunRepo creates dir if needed.
func NewRunRepo(cfg Config) (*RunRepo, error) {
	if cfg.Dir == "" {
		return nil, errors.New("run history dir is not set")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run history dir: %w", err)
	}
	return &RunRepo{dir: cfg.Dir}, nil
}

// path returns the file for id. Ids that are not plain file names are rejected.
func (r *RunRepo) path(id string) (string, bool) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return "", false
	}
	return filepath.Join(r.dir, id+ext), true
}

func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	p, ok := r.path(run.ID)
	if !ok {
		return fmt.Errorf("invalid run id %q", run.ID)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeAtomic(p, data)
}

func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	p, ok := r.path(id)
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return readRun(p)
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs, err := r.readAll()
	if err != nil {
		return nil, err
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

	runs, err := r.readAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, run := range runs {
		if !run.StartedAt.Before(before) {
			continue
		}
		p, _ := r.path(run.ID)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, fmt.Errorf("failed to delete run %s: %w", run.ID, err)
		}
		n++
	}
	return n, nil
}

func (r *RunRepo) Close() error { return nil }

// readAll decodes every run file. Unreadable files are skipped with a warning.
// Callers hold r.mu.
func (r *RunRepo) readAll() ([]*domain.Run, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]*domain.Run, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		run, err := readRun(filepath.Join(r.dir, e.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable run record", "file", e.Name(), "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func readRun(p string) (*domain.Run, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// writeAtomic writes data to a temp file in the same dir and renames it over p.
func writeAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to save run: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to save run: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}
