package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

func TestSearchDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.tex", `\section{A}`)
	writeFile(t, dir, "Notes.md", "# notes")
	writeFile(t, dir, "nested/report.pdf", "%PDF-1.4")
	writeFile(t, dir, "nested/photo.png", "png")
	writeFile(t, dir, ".git/config.toml", "a = 1")
	writeFile(t, dir, "empty.txt", "")
	writeFile(t, dir, "big.txt", "0123456789abcdef")

	e := newTestEngine(t, WithMaxFileSize(15))

	tests := []struct {
		name      string
		query     string
		limit     int
		wantNames []string
	}{
		{name: "all supported", wantNames: []string{"Notes.md", "report.pdf", "paper.tex"}},
		{name: "case-insensitive query", query: "NOTES", wantNames: []string{"Notes.md"}},
		{name: "limit", limit: 1, wantNames: []string{"Notes.md"}},
		{name: "no match", query: "zzz", wantNames: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.SearchDirectory(context.Background(), dir, tt.query, tt.limit)
			require.NoError(t, err)

			names := make([]string, 0, len(result.Files))
			for _, f := range result.Files {
				names = append(names, f.Name)
				assert.True(t, filepath.IsAbs(f.Path))
				assert.NotEmpty(t, f.MimeType)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, len(names), result.TotalCount)
			assert.Equal(t, tt.query, result.SearchQuery)
		})
	}
}

func TestSearchDirectory_Errors(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		dir      string
		wantKind errors.Kind
	}{
		{name: "blank", dir: " ", wantKind: errors.KindValidation},
		{name: "missing", dir: filepath.Join(t.TempDir(), "missing"), wantKind: errors.KindIo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SearchDirectory(context.Background(), tt.dir, "", 0)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestSearchDirectory_SkipsEscapingSymlinks(t *testing.T) {
	dir := t.TempDir()
	outside := writeFile(t, t.TempDir(), "secret.md", "# secret")
	writeFile(t, dir, "inside.md", "# inside")
	if err := os.Symlink(outside, filepath.Join(dir, "link.md")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	e := newTestEngine(t)
	result, err := e.SearchDirectory(context.Background(), dir, "", 0)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "inside.md", result.Files[0].Name)
}

func TestSearchDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t).SearchDirectory(ctx, dir, "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
