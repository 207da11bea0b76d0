package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

func TestNewPathValidator(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{name: "valid directory", dir: tempDir},
		{name: "empty directory", dir: "", wantError: true},
		{name: "blank directory", dir: "   ", wantError: true},
		{name: "non-existent directory", dir: filepath.Join(tempDir, "later")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewPathValidator(tt.dir)
			if tt.wantError {
				require.Error(t, err)
				assert.Equal(t, errors.KindValidation, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(validator.Root()))
		})
	}
}

func TestPathValidator_Resolve(t *testing.T) {
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.Mkdir(subDir, 0o755))
	validFile := filepath.Join(tempDir, "valid.pdf")
	require.NoError(t, os.WriteFile(validFile, []byte("test"), 0o644))

	validator, err := NewPathValidator(tempDir)
	require.NoError(t, err)
	root := validator.Root()

	tests := []struct {
		name      string
		path      string
		expected  string
		wantError bool
	}{
		{name: "empty path", path: "", wantError: true},
		{name: "file in root", path: validFile, expected: filepath.Join(root, "valid.pdf")},
		{name: "relative to root", path: "subdir/doc.txt", expected: filepath.Join(root, "subdir", "doc.txt")},
		{name: "dot segment", path: filepath.Join(tempDir, ".", "valid.pdf"), expected: filepath.Join(root, "valid.pdf")},
		{name: "null bytes stripped", path: "valid\x00.pdf", expected: filepath.Join(root, "valid.pdf")},
		{name: "absolute outside", path: "/etc/passwd", wantError: true},
		{name: "parent traversal", path: filepath.Join(tempDir, "..", "outside.pdf"), wantError: true},
		{name: "relative traversal", path: "../outside.pdf", wantError: true},
		{name: "root itself", path: tempDir, expected: root},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := validator.Resolve(tt.path)
			if tt.wantError {
				require.Error(t, err)
				assert.Equal(t, errors.KindValidation, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resolved)
		})
	}
}

func TestPathValidator_Symlinks(t *testing.T) {
	tempDir := t.TempDir()
	outside := t.TempDir()

	target := filepath.Join(tempDir, "target.pdf")
	require.NoError(t, os.WriteFile(target, []byte("test"), 0o644))
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	inside := filepath.Join(tempDir, "inside.pdf")
	escape := filepath.Join(tempDir, "escape.txt")
	escapeDir := filepath.Join(tempDir, "escape-dir")
	if err := os.Symlink(target, inside); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(secret, escape))
	require.NoError(t, os.Symlink(outside, escapeDir))

	validator, err := NewPathValidator(tempDir)
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "symlink within directory", path: inside},
		{name: "symlink to outside file", path: escape, wantError: true},
		{name: "file through symlinked directory", path: filepath.Join(escapeDir, "secret.txt"), wantError: true},
		{name: "new file through symlinked directory", path: filepath.Join(escapeDir, "new.txt"), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Resolve(tt.path)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathValidator_ResolveDirectory(t *testing.T) {
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "docs")
	require.NoError(t, os.Mkdir(subDir, 0o755))
	file := filepath.Join(tempDir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	validator, err := NewPathValidator(tempDir)
	require.NoError(t, err)

	tests := []struct {
		name     string
		dir      string
		wantKind errors.Kind
		wantErr  bool
	}{
		{name: "empty means root", dir: ""},
		{name: "subdirectory", dir: subDir},
		{name: "missing", dir: filepath.Join(tempDir, "missing"), wantErr: true, wantKind: errors.KindIo},
		{name: "file", dir: file, wantErr: true, wantKind: errors.KindValidation},
		{name: "outside", dir: os.TempDir(), wantErr: true, wantKind: errors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := validator.ResolveDirectory(tt.dir)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, resolved)
		})
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "child", path: filepath.Join(root, "a.txt"), expected: true},
		{name: "nested child", path: filepath.Join(root, "a", "b", "c.txt"), expected: true},
		{name: "root", path: root, expected: true},
		{name: "sibling with shared prefix", path: root + "-other", expected: false},
		{name: "parent", path: filepath.Dir(root), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Within(tt.path, root)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}
