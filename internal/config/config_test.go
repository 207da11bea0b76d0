package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-extract/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "mcp-doc-extract", cfg.ServerName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 256, cfg.MaxDepth)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.NotEmpty(t, cfg.PDFWorkDir)

	currentDir, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, currentDir, cfg.Directory)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid stdio config", mutate: func(*Config) {}},
		{name: "valid server config", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "invalid" }, wantErr: "mode must be either"},
		{name: "port ignored in stdio mode", mutate: func(c *Config) { c.Port = 0 }},
		{
			name:    "port too low in server mode",
			mutate:  func(c *Config) { c.Mode = ModeServer; c.Port = 0 },
			wantErr: "port must be between",
		},
		{
			name:    "port too high in server mode",
			mutate:  func(c *Config) { c.Mode = ModeServer; c.Port = 70000 },
			wantErr: "port must be between",
		},
		{name: "empty directory", mutate: func(c *Config) { c.Directory = "" }, wantErr: "directory cannot be empty"},
		{name: "zero max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size must be positive"},
		{name: "negative max depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: "depth must be positive"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: "concurrency must be positive"},
		{name: "empty pdf work dir", mutate: func(c *Config) { c.PDFWorkDir = "" }, wantErr: "working directory"},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_CreatesDirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.Directory = filepath.Join(cfg.Directory, "nested", "docs")

	require.NoError(t, cfg.Validate())
	assert.DirExists(t, cfg.Directory)
}

func TestConfigValidate_DirectoryIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(cfg.Directory, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.Directory = filepath.Join(file, "child")

	assert.Error(t, cfg.Validate())
}

func TestConfigHelpers(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		logLevel   string
		wantServer bool
		wantStdio  bool
		wantDebug  bool
	}{
		{name: "stdio info", mode: ModeStdio, logLevel: "info", wantStdio: true},
		{name: "server debug", mode: ModeServer, logLevel: "debug", wantServer: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel

			assert.Equal(t, tt.wantServer, cfg.IsServerMode())
			assert.Equal(t, tt.wantStdio, cfg.IsStdioMode())
			assert.Equal(t, tt.wantDebug, cfg.IsDebug())
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "0.0.0.0"
	cfg.Port = 9090
	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = "/docs"

	s := cfg.String()
	for _, want := range []string{"Mode: stdio", "Directory: /docs", "MaxDepth: 256", "Concurrency: 4"} {
		assert.True(t, strings.Contains(s, want), "missing %q in %s", want, s)
	}
}

func TestConfigExtractionConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 32

	ec := cfg.ExtractionConfig()
	assert.Equal(t, 32, ec.MaxDepth)
	assert.Equal(t, types.DefaultPageSeparator, ec.PageSeparator)
	assert.Zero(t, ec.MaxContentBytes)
}

func TestCheckVersionFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "no args", args: nil},
		{name: "long flag", args: []string{"--version"}, want: true},
		{name: "single dash", args: []string{"-version"}, want: true},
		{name: "short flag", args: []string{"--dir=/tmp", "-v"}, want: true},
		{name: "other flags", args: []string{"--mode=server"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkVersionFlag(tt.args))
		})
	}
}
