// Package security confines file-based operations to a configured directory.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

// PathValidator resolves caller-supplied paths against a root directory and
// rejects anything that escapes it, including through symlinks.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator for root. The directory does not need to exist yet.
func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.Validation("configured directory cannot be empty", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Validation("failed to resolve configured directory", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute configured directory
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken from the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", errors.Validation("path cannot be empty", nil)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Validation("failed to resolve path", err)
	}

	within, err := Within(abs, v.root)
	if err != nil {
		return "", errors.Validation("path validation failed", err)
	}
	if !within {
		return "", errors.Validation("path is outside configured directory: "+path, nil)
	}
	return abs, nil
}

// ResolveDirectory resolves dir like Resolve and requires it to be an existing directory.
// An empty dir means the root.
func (v *PathValidator) ResolveDirectory(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = v.root
	}
	abs, err := v.Resolve(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Io("cannot access directory", err)
	}
	if !info.IsDir() {
		return "", errors.Validation("path is not a directory: "+dir, nil)
	}
	return abs, nil
}

// Within reports whether path lies inside root once symlinks on both sides are resolved
func Within(path, root string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}

	realRoot := realPath(absRoot)
	real := realPath(absPath)
	return contains(realRoot, real) || contains(filepath.Clean(absRoot), real), nil
}

// realPath evaluates symlinks. For a path that does not exist yet the
// parent directory is evaluated instead.
func realPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	parent, base := filepath.Split(filepath.Clean(p))
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		return filepath.Join(resolved, base)
	}
	return filepath.Clean(p)
}

func contains(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
