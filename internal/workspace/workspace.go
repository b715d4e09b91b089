// Package workspace models the set of open project roots the engine scans.
// Roots are supplied by the host and are read-only to the rest of the engine.
package workspace

import (
	"errors"
	"path/filepath"
	"sort"
)

// Common errors.
var (
	// ErrNoRoots indicates a workspace was opened with no folders.
	ErrNoRoots = errors.New("workspace has no roots")
)

// Root is one top-level folder of the workspace.
type Root struct {
	// Name is the display name, defaulting to the folder's base name.
	Name string

	// Path is the absolute filesystem path.
	Path string
}

// Workspace is an ordered collection of project roots.
// Roots are kept sorted alphabetically by name so that repeated scans of an
// unchanged workspace visit folders in a stable order.
type Workspace struct {
	roots []Root
}

// Open creates a workspace from the given folder paths.
// Paths are made absolute; names default to the base name of each folder.
func Open(paths ...string) (*Workspace, error) {
	if len(paths) == 0 {
		return nil, ErrNoRoots
	}

	roots := make([]Root, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		roots = append(roots, Root{
			Name: filepath.Base(abs),
			Path: abs,
		})
	}

	w := &Workspace{roots: roots}
	w.sortRoots()
	return w, nil
}

// OpenNamed creates a workspace from pre-built roots, for hosts that supply
// display names distinct from the folder base name.
func OpenNamed(roots ...Root) (*Workspace, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	w := &Workspace{roots: make([]Root, len(roots))}
	copy(w.roots, roots)
	for i := range w.roots {
		if w.roots[i].Name == "" {
			w.roots[i].Name = filepath.Base(w.roots[i].Path)
		}
	}
	w.sortRoots()
	return w, nil
}

// Roots returns the roots in alphabetical-by-name order.
// The returned slice is a copy; callers cannot mutate workspace state.
func (w *Workspace) Roots() []Root {
	out := make([]Root, len(w.roots))
	copy(out, w.roots)
	return out
}

// Find returns the root matching both name and path, if any.
// Both fields must match: a renamed root is treated as a different root.
func (w *Workspace) Find(name, path string) (Root, bool) {
	for _, r := range w.roots {
		if r.Name == name && r.Path == path {
			return r, true
		}
	}
	return Root{}, false
}

// Contains reports whether the given path is one of the open roots.
func (w *Workspace) Contains(path string) bool {
	for _, r := range w.roots {
		if r.Path == path {
			return true
		}
	}
	return false
}

func (w *Workspace) sortRoots() {
	sort.Slice(w.roots, func(i, j int) bool {
		if w.roots[i].Name == w.roots[j].Name {
			return w.roots[i].Path < w.roots[j].Path
		}
		return w.roots[i].Name < w.roots[j].Name
	})
}
