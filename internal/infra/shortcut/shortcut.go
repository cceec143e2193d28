package shortcut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Descriptor describes one shortcut.
type Descriptor struct {
	Name        string
	Target      string
	Args        string
	WorkingDir  string
	Icon        string
	Description string
}

// Creator creates shortcuts in a fixed directory.
type Creator interface {
	// Create writes the shortcut and returns its path
	Create(d Descriptor) (string, error)
}

// DesktopDir returns the current user's desktop directory.
func DesktopDir() (string, error) {
	if profile := os.Getenv("USERPROFILE"); profile != "" {
		return filepath.Join(profile, "Desktop"), nil
	}
	if dir := os.Getenv("XDG_DESKTOP_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve desktop directory: %w", err)
	}
	return filepath.Join(home, "Desktop"), nil
}

// fileName strips characters that are invalid in Windows file names.
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}
