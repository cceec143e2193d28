package cleanup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/ledger"
)

// ErrCritical marks a cleanup failure on an item the caller flagged critical.
var ErrCritical = errors.New("critical cleanup failed")

// FS is the filesystem surface cleanup needs.
type FS interface {
	Lstat(path string) (fs.FileInfo, error)
	RemoveAll(path string) error
}

type osFS struct{}

func (osFS) Lstat(path string) (fs.FileInfo, error) { return os.Lstat(path) }
func (osFS) RemoveAll(path string) error            { return os.RemoveAll(path) }

// Item is one path to remove.
type Item struct {
	Path     string
	Critical bool
}

// Cleaner reverses the filesystem side effects of a failed run.
type Cleaner struct {
	fs       FS
	critical map[string]bool
}

// NewCleaner creates a cleaner. Paths in critical abort the remaining cleanup
// when they cannot be removed.
func NewCleaner(critical []string) *Cleaner {
	return newCleaner(osFS{}, critical)
}

// NewCleanerFS creates a cleaner that removes paths through fsys.
func NewCleanerFS(fsys FS, critical []string) *Cleaner {
	return newCleaner(fsys, critical)
}

func newCleaner(fsys FS, critical []string) *Cleaner {
	c := &Cleaner{fs: fsys, critical: make(map[string]bool, len(critical))}
	for _, p := range critical {
		c.critical[filepath.Clean(p)] = true
	}
	return c
}

// Plan lists what to remove: registered temp paths newest first, then the
// directories the run created, newest first so children go before parents.
func (c *Cleaner) Plan(l *ledger.Ledger, reg *Registry) []Item {
	var items []Item
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		items = append(items, Item{Path: p, Critical: c.critical[p]})
	}

	if reg != nil {
		temps := reg.Paths()
		slices.Reverse(temps)
		for _, p := range temps {
			add(p)
		}
	}
	if l != nil {
		dirs := l.Outcomes(domain.CategoryDirectories)
		slices.Reverse(dirs)
		for _, o := range dirs {
			if o.Created() {
				add(o.Target)
			}
		}
	}
	return items
}

// Run removes every item, continuing past failures. The first failure on a
// critical item stops the run and returns an error wrapping ErrCritical.
func (c *Cleaner) Run(items []Item) (*Record, error) {
	rec := &Record{}
	for _, item := range items {
		removed, err := c.remove(item.Path)
		switch {
		case err != nil:
			rec.failed(item.Path)
			slog.Warn("Cleanup failed", "path", item.Path, "critical", item.Critical, "error", err)
			if item.Critical {
				return rec, domain.NewError(domain.KindFile, "cleanup", item.Path,
					fmt.Errorf("%w: %w", ErrCritical, err))
			}
		case !removed:
			rec.Absent = append(rec.Absent, item.Path)
			slog.Debug("Nothing to clean up", "path", item.Path)
		default:
			rec.cleaned(item.Path)
			slog.Info("Cleaned up", "path", item.Path)
		}
	}
	return rec, nil
}

// Rollback plans and runs cleanup for a run, dropping removed paths from reg.
func (c *Cleaner) Rollback(l *ledger.Ledger, reg *Registry) (*Record, error) {
	rec, err := c.Run(c.Plan(l, reg))
	if reg != nil {
		for _, p := range rec.Cleaned {
			reg.Remove(p)
		}
		for _, p := range rec.Absent {
			reg.Remove(p)
		}
	}
	return rec, err
}

// Validate re-checks the record against the filesystem. It warns when a
// cleaned path still exists or a failed path turns out to be gone. Warnings
// are appended to the record and returned.
func (c *Cleaner) Validate(rec *Record) []string {
	var warnings []string
	for _, p := range rec.Cleaned {
		if c.exists(p) {
			warnings = append(warnings, fmt.Sprintf("cleaned path still exists: %s", p))
		}
	}
	for _, p := range rec.FailedTargets {
		if !c.exists(p) {
			warnings = append(warnings, fmt.Sprintf("path reported as failed no longer exists: %s", p))
		}
	}
	rec.Warnings = append(rec.Warnings, warnings...)
	return warnings
}

func (c *Cleaner) remove(path string) (bool, error) {
	if _, err := c.fs.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := c.fs.RemoveAll(path); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cleaner) exists(path string) bool {
	_, err := c.fs.Lstat(path)
	return err == nil
}
