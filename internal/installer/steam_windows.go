//go:build windows

package installer

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// steamPath reads the Steam install path from the current user's registry.
func steamPath() (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, `Software\Valve\Steam`, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open Steam registry key: %w", err)
	}
	defer k.Close()

	p, _, err := k.GetStringValue("SteamPath")
	if err != nil {
		return "", fmt.Errorf("read SteamPath: %w", err)
	}
	return filepath.Clean(p), nil
}
