//go:build !windows

package shortcut

// New returns the platform shortcut creator for dir.
func New(dir string) Creator {
	return NewDesktopEntryCreator(dir)
}
