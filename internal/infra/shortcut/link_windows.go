//go:build windows

package shortcut

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/scjalliance/comshim"
)

// LinkCreator writes Windows .lnk files through the WScript.Shell COM object.
type LinkCreator struct {
	dir string
}

func NewLinkCreator(dir string) *LinkCreator {
	return &LinkCreator{dir: dir}
}

func (c *LinkCreator) Create(d Descriptor) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", c.dir, err)
	}

	// Initialize COM
	comshim.Add(1)
	defer comshim.Done()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", fmt.Errorf("failed to create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to query IDispatch: %w", err)
	}
	defer shell.Release()

	path := filepath.Join(c.dir, fileName(d.Name)+".lnk")
	created, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return "", fmt.Errorf("CreateShortcut failed: %w", err)
	}
	link := created.ToIDispatch()
	defer link.Release()

	props := map[string]string{
		"TargetPath":       d.Target,
		"Arguments":        d.Args,
		"WorkingDirectory": d.WorkingDir,
		"IconLocation":     d.Icon,
		"Description":      d.Description,
	}
	for name, value := range props {
		if value == "" {
			continue
		}
		if _, err := oleutil.PutProperty(link, name, value); err != nil {
			return "", fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return "", fmt.Errorf("failed to save shortcut: %w", err)
	}
	return path, nil
}
