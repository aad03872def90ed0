package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathGuard confines file access to a fixed set of root directories.
// The first root is used to resolve relative paths.
type PathGuard struct {
	roots []string
}

// NewPathGuard creates a guard for the given roots. Empty and duplicate
// roots are ignored, but at least one root is required.
func NewPathGuard(roots ...string) (*PathGuard, error) {
	seen := make(map[string]bool, len(roots))
	g := &PathGuard{}

	for _, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", root, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		g.roots = append(g.roots, abs)
	}

	if len(g.roots) == 0 {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return g, nil
}

// Root returns the primary directory
func (g *PathGuard) Root() string {
	return g.roots[0]
}

// Roots returns every directory the guard admits
func (g *PathGuard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// Resolve cleans path, anchors relative paths at Root and checks that the
// result lies inside one of the roots. The returned path is absolute.
func (g *PathGuard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Root(), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !g.Contains(abs) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

// Contains reports whether path lies inside one of the roots, both
// lexically and after symlinks are resolved. A root that does not exist
// yet only gets the lexical check.
func (g *PathGuard) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	real := realPath(abs)

	for _, root := range g.roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			if within(abs, root) {
				return true
			}
			continue
		}

		realRoot := root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			realRoot = resolved
		}
		lexicalOK := within(abs, root) || within(abs, realRoot)
		realOK := within(real, root) || within(real, realRoot)
		if lexicalOK && realOK {
			return true
		}
	}
	return false
}

// realPath resolves symlinks in the deepest existing ancestor of path, so
// that files which do not exist yet are judged by where they would land.
func realPath(path string) string {
	dir, rest := path, ""
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}

func within(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
