//go:build !windows

package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vietddude/luna/internal/core/domain"
)

// steamPath looks in the usual Linux Steam locations.
func steamPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	for _, dir := range []string{
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
	} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("steam lookup: %w", domain.ErrUnsupported)
}
