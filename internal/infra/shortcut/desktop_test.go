package shortcut

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesktopEntryCreator_Create(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Desktop")
	c := NewDesktopEntryCreator(dir)

	path, err := c.Create(Descriptor{
		Name:        "Luna: GreenLuma",
		Target:      "/opt/luna/green luma/DLLInjector.exe",
		Args:        "-silent",
		WorkingDir:  "/opt/luna",
		Description: "Start GreenLuma",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Luna_ GreenLuma.desktop"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[Desktop Entry]\n")
	assert.Contains(t, content, "Exec=\"/opt/luna/green luma/DLLInjector.exe\" -silent\n")
	assert.Contains(t, content, "Path=/opt/luna\n")
	assert.Contains(t, content, "Comment=Start GreenLuma\n")
	assert.NotContains(t, content, "Icon=")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", fileName(`a/b\c`))
	assert.Equal(t, "Luna", fileName("Luna"))
}
