package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs swaps os.Args and the global flag set for the duration of a test
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	original := os.Args
	reset := func() {
		pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
		viper.Reset()
	}

	os.Args = args
	reset()
	t.Cleanup(func() {
		os.Args = original
		reset()
	})
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	withArgs(t, "mcp-doc-extract")

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.NotEmpty(t, cfg.Directory)
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		wantMode        string
		wantHost        string
		wantPort        int
		wantLogLevel    string
		wantMaxFileSize int64
		wantMaxDepth    int
		wantConcurrency int
	}{
		{
			name:     "stdio mode with custom directory",
			wantMode: ModeStdio, wantHost: DefaultHost, wantPort: DefaultPort, wantLogLevel: "info",
			wantMaxFileSize: DefaultMaxFileSize, wantMaxDepth: DefaultMaxDepth, wantConcurrency: DefaultConcurrency,
		},
		{
			name:     "server mode with custom host and port",
			args:     []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			wantMode: ModeServer, wantHost: "0.0.0.0", wantPort: 9090, wantLogLevel: "info",
			wantMaxFileSize: DefaultMaxFileSize, wantMaxDepth: DefaultMaxDepth, wantConcurrency: DefaultConcurrency,
		},
		{
			name:     "debug logging",
			args:     []string{"--loglevel=debug"},
			wantMode: ModeStdio, wantHost: DefaultHost, wantPort: DefaultPort, wantLogLevel: "debug",
			wantMaxFileSize: DefaultMaxFileSize, wantMaxDepth: DefaultMaxDepth, wantConcurrency: DefaultConcurrency,
		},
		{
			name:     "extraction limits",
			args:     []string{"--maxfilesize=50000000", "--maxdepth=16", "--concurrency=8"},
			wantMode: ModeStdio, wantHost: DefaultHost, wantPort: DefaultPort, wantLogLevel: "info",
			wantMaxFileSize: 50000000, wantMaxDepth: 16, wantConcurrency: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			withArgs(t, append([]string{"mcp-doc-extract", "--dir=" + dir}, tt.args...)...)

			cfg, err := LoadFromFlags()
			require.NoError(t, err)

			assert.Equal(t, tt.wantMode, cfg.Mode)
			assert.Equal(t, tt.wantHost, cfg.Host)
			assert.Equal(t, tt.wantPort, cfg.Port)
			assert.Equal(t, tt.wantLogLevel, cfg.LogLevel)
			assert.Equal(t, tt.wantMaxFileSize, cfg.MaxFileSize)
			assert.Equal(t, tt.wantMaxDepth, cfg.MaxDepth)
			assert.Equal(t, tt.wantConcurrency, cfg.Concurrency)
			assert.Equal(t, dir, cfg.Directory)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	workDir := t.TempDir()
	t.Setenv("MCP_DOC_MODE", "server")
	t.Setenv("MCP_DOC_HOST", "192.168.1.1")
	t.Setenv("MCP_DOC_PORT", "3000")
	t.Setenv("MCP_DOC_DIR", dir)
	t.Setenv("MCP_DOC_LOGLEVEL", "warn")
	t.Setenv("MCP_DOC_MAXFILESIZE", "200000000")
	t.Setenv("MCP_DOC_MAXDEPTH", "64")
	t.Setenv("MCP_DOC_CONCURRENCY", "2")
	t.Setenv("MCP_DOC_PDFWORKDIR", workDir)
	withArgs(t, "mcp-doc-extract")

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, "192.168.1.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, dir, cfg.Directory)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, int64(200000000), cfg.MaxFileSize)
	assert.Equal(t, 64, cfg.MaxDepth)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, workDir, cfg.PDFWorkDir)
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MCP_DOC_MODE", "server")
	t.Setenv("MCP_DOC_HOST", "192.168.1.1")
	t.Setenv("MCP_DOC_PORT", "3000")
	withArgs(t, "mcp-doc-extract", "--mode=stdio", "--host=localhost", "--port=8888", "--dir="+t.TempDir())

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8888, cfg.Port)
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "invalid port", args: []string{"--mode=server", "--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "invalid log level", args: []string{"--loglevel=invalid"}, wantErr: "invalid log level"},
		{name: "zero depth", args: []string{"--maxdepth=0"}, wantErr: "maximum depth must be positive"},
		{name: "negative concurrency", args: []string{"--concurrency=-2"}, wantErr: "concurrency must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, append([]string{"mcp-doc-extract", "--dir=" + t.TempDir()}, tt.args...)...)

			_, err := LoadFromFlags()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	withArgs(t, "mcp-doc-extract", "--version")

	_, err := LoadFromFlags()
	assert.ErrorIs(t, err, ErrVersionRequested)
}
