package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runBatch(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, dir, "notes.md", "# Notes\n\nbody")
	rtf := writeFile(t, dir, "memo.rtf", `{\rtf1\ansi{\info{\title Memo}}Hello\par World}`)

	code, stdout, _ := runBatch(t, md, rtf)
	require.Equal(t, exitOK, code)

	var outputs []FileOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &outputs))
	require.Len(t, outputs, 2)

	assert.Equal(t, md, outputs[0].Path)
	assert.Equal(t, "text/markdown", outputs[0].MimeType)
	assert.Equal(t, "Notes", outputs[0].Metadata["title"])

	assert.Equal(t, rtf, outputs[1].Path)
	assert.Equal(t, "Hello World", outputs[1].Content)
	assert.Empty(t, outputs[1].Error)
}

func TestRun_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.txt", "fine")
	missing := filepath.Join(dir, "missing.txt")

	code, stdout, _ := runBatch(t, ok, missing)
	assert.Equal(t, exitPartial, code)

	var outputs []FileOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &outputs))
	require.Len(t, outputs, 2)
	assert.Equal(t, "fine", outputs[0].Content)
	assert.Equal(t, "Io", outputs[1].ErrorKind)
	assert.NotEmpty(t, outputs[1].Error)
}

func TestRun_AllFail(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", "{broken")

	code, _, _ := runBatch(t, bad)
	assert.Equal(t, exitFailure, code)
}

func TestRun_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "sub/report.md", "# Report")
	writeFile(t, dir, "image.png", "png")

	tests := []struct {
		name      string
		args      []string
		wantCount int
	}{
		{name: "all supported files", args: []string{dir}, wantCount: 2},
		{name: "query filter", args: []string{"--query=report", dir}, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runBatch(t, tt.args...)
			require.Equal(t, exitOK, code)

			var outputs []FileOutput
			require.NoError(t, json.Unmarshal([]byte(stdout), &outputs))
			assert.Len(t, outputs, tt.wantCount)
		})
	}
}

func TestRun_TextFormat(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, dir, "notes.md", "# Notes\n\nbody")
	missing := filepath.Join(dir, "missing.pdf")

	code, stdout, _ := runBatch(t, "--format=text", md, missing)
	assert.Equal(t, exitPartial, code)
	assert.Contains(t, stdout, "=== "+md+" ===\nMIME Type: text/markdown\nTitle: Notes\n\n# Notes\n\nbody\n")
	assert.Contains(t, stdout, "=== "+missing+" ===\nError (Io): ")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStderr string
	}{
		{name: "no arguments", args: nil, wantCode: exitFailure, wantStderr: "at least one file"},
		{name: "unknown format", args: []string{"--format=xml", "x"}, wantCode: exitFailure, wantStderr: "unknown format"},
		{name: "unknown flag", args: []string{"--nope", "x"}, wantCode: exitFailure, wantStderr: "unknown flag"},
		{name: "help", args: []string{"--help"}, wantCode: exitOK, wantStderr: "Usage: doc_extract_batch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runBatch(t, tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr, tt.wantStderr)
		})
	}
}
