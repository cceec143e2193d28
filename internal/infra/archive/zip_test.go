package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/luna/internal/core/domain"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "src.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestExtract_KeepsLayout(t *testing.T) {
	src := writeZip(t, map[string]string{
		"GreenLuma/DLLInjector.exe": "exe",
		"GreenLuma/AppList/0.txt":   "480",
	})
	dest := t.TempDir()

	files, err := Extract(src, dest, false)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.FileExists(t, filepath.Join(dest, "GreenLuma", "AppList", "0.txt"))
}

func TestExtract_Flatten(t *testing.T) {
	src := writeZip(t, map[string]string{
		"release/bin/Koalageddon.exe": "exe",
		"release/Config.jsonc":        "{}",
		"release/bin/":                "",
	})
	dest := t.TempDir()

	files, err := Extract(src, dest, true)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.FileExists(t, filepath.Join(dest, "Koalageddon.exe"))
	assert.FileExists(t, filepath.Join(dest, "Config.jsonc"))
	assert.NoDirExists(t, filepath.Join(dest, "release"))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	src := writeZip(t, map[string]string{"../evil.dll": "x"})
	dest := t.TempDir()

	_, err := Extract(src, dest, false)
	require.Error(t, err)
	assert.Equal(t, domain.KindFile, domain.KindOf(err))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.dll"))
}

func TestExtract_EmptyArchive(t *testing.T) {
	src := writeZip(t, map[string]string{"only/dir/": ""})

	_, err := Extract(src, t.TempDir(), false)
	assert.True(t, errors.Is(err, domain.ErrEmptyArchive))
}

func TestExtract_NotAZip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(src, []byte("<html>"), 0o644))

	_, err := Extract(src, t.TempDir(), false)
	require.Error(t, err)
	assert.Equal(t, domain.KindFile, domain.KindOf(err))
}
