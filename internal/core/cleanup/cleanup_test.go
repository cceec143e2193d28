package cleanup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/ledger"
)

// =============================================================================
// Fake filesystem
// =============================================================================

type fakeInfo struct{ name string }

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return fs.ModeDir }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return true }
func (f fakeInfo) Sys() any           { return nil }

type fakeFS struct {
	existing map[string]bool
	failing  map[string]bool
	// stubborn paths report success but stay on disk
	stubborn map[string]bool
	removed  []string
}

func newFakeFS(paths ...string) *fakeFS {
	f := &fakeFS{existing: map[string]bool{}, failing: map[string]bool{}, stubborn: map[string]bool{}}
	for _, p := range paths {
		f.existing[filepath.Clean(p)] = true
	}
	return f
}

func (f *fakeFS) Lstat(path string) (fs.FileInfo, error) {
	if f.existing[path] {
		return fakeInfo{name: filepath.Base(path)}, nil
	}
	return nil, fs.ErrNotExist
}

func (f *fakeFS) RemoveAll(path string) error {
	f.removed = append(f.removed, path)
	if f.failing[path] {
		return errors.New("access denied")
	}
	if !f.stubborn[path] {
		delete(f.existing, path)
	}
	return nil
}

func ledgerWithDirs(dirs ...string) *ledger.Ledger {
	l := ledger.New()
	for _, d := range dirs {
		l.RecordOutcome(domain.CategoryDirectories, d, true, "created")
	}
	return l
}

// =============================================================================
// Plan
// =============================================================================

func TestPlan_DirectoriesInReverseOrder(t *testing.T) {
	a := filepath.Join("root", "A")
	ab := filepath.Join(a, "B")
	abc := filepath.Join(ab, "C")

	f := newFakeFS(a, ab, abc)
	c := newCleaner(f, nil)

	rec, err := c.Run(c.Plan(ledgerWithDirs(a, ab, abc), nil))
	require.NoError(t, err)

	assert.Equal(t, []string{abc, ab, a}, f.removed)
	assert.Equal(t, 3, rec.Succeeded)
}

func TestPlan_TempPathsFirstNewestFirst(t *testing.T) {
	reg := NewRegistry()
	reg.Add("tmp/one.zip")
	reg.Add("tmp/two.zip")
	reg.Add("tmp/one.zip")

	c := newCleaner(newFakeFS(), []string{"dir"})
	items := c.Plan(ledgerWithDirs("dir"), reg)

	require.Len(t, items, 3)
	assert.Equal(t, filepath.Clean("tmp/two.zip"), items[0].Path)
	assert.Equal(t, filepath.Clean("tmp/one.zip"), items[1].Path)
	assert.Equal(t, Item{Path: "dir", Critical: true}, items[2])
}

func TestPlan_SkipsPreexistingAndFailedDirectories(t *testing.T) {
	l := ledger.New()
	l.RecordOutcome(domain.CategoryDirectories, "existing", true, domain.MsgAlreadyExists)
	l.RecordOutcome(domain.CategoryDirectories, "denied", false, "access denied")
	l.RecordOutcome(domain.CategoryDirectories, "fresh", true, "created")

	items := newCleaner(newFakeFS(), nil).Plan(l, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Path)
}

// =============================================================================
// Run
// =============================================================================

func TestRun_ContinuesPastFailures(t *testing.T) {
	f := newFakeFS("a", "b", "c")
	f.failing["b"] = true
	c := newCleaner(f, nil)

	rec, err := c.Run([]Item{{Path: "a"}, {Path: "b"}, {Path: "c"}})
	require.NoError(t, err)

	assert.Equal(t, 3, rec.Attempted)
	assert.Equal(t, 2, rec.Succeeded)
	assert.Equal(t, 1, rec.Failed)
	assert.Equal(t, []string{"b"}, rec.FailedTargets)
	assert.InDelta(t, 2.0/3.0, rec.SuccessRatio(), 1e-9)
}

func TestRun_CriticalFailureAborts(t *testing.T) {
	f := newFakeFS("a", "b", "c")
	f.failing["b"] = true
	c := newCleaner(f, nil)

	rec, err := c.Run([]Item{{Path: "a"}, {Path: "b", Critical: true}, {Path: "c"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCritical)
	assert.Equal(t, domain.KindFile, domain.KindOf(err))

	assert.Equal(t, []string{"a", "b"}, f.removed)
	assert.Equal(t, 2, rec.Attempted)
}

func TestRun_EmptyIsVacuousSuccess(t *testing.T) {
	rec, err := newCleaner(newFakeFS(), nil).Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.SuccessRatio())
}

func TestRollback_Idempotent(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "luna")
	nested := filepath.Join(dir, "AppList")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	tmp := filepath.Join(root, "download.zip")
	require.NoError(t, os.WriteFile(tmp, []byte("zip"), 0o644))

	l := ledgerWithDirs(dir, nested)
	reg := NewRegistry()
	reg.Add(tmp)

	c := NewCleaner(nil)

	first, err := c.Rollback(l, reg)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Succeeded)
	assert.Zero(t, reg.Len())
	assert.NoDirExists(t, dir)
	assert.NoFileExists(t, tmp)

	// the registry was drained, so re-register to mimic a caller that kept its own copy
	reg.Add(tmp)
	second, err := c.Rollback(l, reg)
	require.NoError(t, err)
	assert.Zero(t, second.Attempted)
	assert.Zero(t, second.Succeeded)
	assert.Zero(t, second.Failed)
	assert.ElementsMatch(t, []string{tmp, dir, nested}, second.Absent)
	assert.Equal(t, 1.0, second.SuccessRatio())
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate_FlagsInconsistentRecords(t *testing.T) {
	f := newFakeFS("stuck", "flaky")
	f.stubborn["stuck"] = true
	f.failing["flaky"] = true
	c := newCleaner(f, nil)

	rec, err := c.Run([]Item{{Path: "stuck"}, {Path: "flaky"}})
	require.NoError(t, err)

	// the failing removal actually succeeded out of band
	delete(f.existing, "flaky")

	warnings := c.Validate(rec)
	require.Len(t, warnings, 2)
	assert.True(t, strings.Contains(warnings[0], "stuck"))
	assert.True(t, strings.Contains(warnings[1], "flaky"))
	assert.Equal(t, warnings, rec.Warnings)
	// warnings do not change the outcome
	assert.Equal(t, 1, rec.Succeeded)
	assert.Equal(t, 1, rec.Failed)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Add("a")
	reg.Add("b/../b")
	reg.Add("a")
	assert.Equal(t, []string{"a", "b"}, reg.Paths())

	reg.Remove("a")
	assert.Equal(t, []string{"b"}, reg.Paths())
}
