package cleanup

import (
	"path/filepath"
	"slices"
	"sync"
)

// Registry tracks temporary paths created during a run that must not outlive it.
// Paths keep insertion order and are unique.
type Registry struct {
	mu    sync.Mutex
	paths []string
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers path. Registering the same path twice is a no-op.
func (r *Registry) Add(path string) {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.paths, path) {
		r.paths = append(r.paths, path)
	}
}

// Remove forgets path, e.g. once it has been deleted or handed off.
func (r *Registry) Remove(path string) {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = slices.DeleteFunc(r.paths, func(p string) bool { return p == path })
}

// Paths returns the registered paths, oldest first.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.paths)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}
