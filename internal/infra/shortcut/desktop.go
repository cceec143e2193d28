package shortcut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DesktopEntryCreator writes freedesktop.org .desktop files.
type DesktopEntryCreator struct {
	dir string
}

func NewDesktopEntryCreator(dir string) *DesktopEntryCreator {
	return &DesktopEntryCreator{dir: dir}
}

func (c *DesktopEntryCreator) Create(d Descriptor) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", c.dir, err)
	}

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", d.Name)
	exec := quoteExec(d.Target)
	if d.Args != "" {
		exec += " " + d.Args
	}
	fmt.Fprintf(&b, "Exec=%s\n", exec)
	if d.WorkingDir != "" {
		fmt.Fprintf(&b, "Path=%s\n", d.WorkingDir)
	}
	if d.Icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", d.Icon)
	}
	if d.Description != "" {
		fmt.Fprintf(&b, "Comment=%s\n", d.Description)
	}
	b.WriteString("Terminal=false\n")

	path := filepath.Join(c.dir, fileName(d.Name)+".desktop")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func quoteExec(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
