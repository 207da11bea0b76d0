package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultMaxDepth    = 256
	DefaultConcurrency = 4

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "MCP_DOC"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the document extraction server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory file-based tools are confined to
	Directory string

	// Extraction configuration
	MaxFileSize int64 // Maximum input size in bytes
	MaxDepth    int
	Concurrency int
	PDFWorkDir  string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio, // stdio is what MCP clients launch
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   currentDir,
		MaxFileSize: DefaultMaxFileSize,
		MaxDepth:    DefaultMaxDepth,
		Concurrency: DefaultConcurrency,
		PDFWorkDir:  native.DefaultWorkDir(),
		Version:     "1.0.0",
		ServerName:  "mcp-doc-extract",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and the environment and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if checkVersionFlag(os.Args[1:]) {
		return nil, ErrVersionRequested
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("maxdepth", cfg.MaxDepth)
	viper.SetDefault("concurrency", cfg.Concurrency)
	viper.SetDefault("pdfworkdir", cfg.PDFWorkDir)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for the HTTP API")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory file-based tools are confined to")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input size in bytes")
	pflag.Int("maxdepth", cfg.MaxDepth, "Maximum nesting depth for LaTeX and RTF parsing")
	pflag.Int("concurrency", cfg.Concurrency, "Number of files extracted at once in batch operations")
	pflag.String("pdfworkdir", cfg.PDFWorkDir, "Working directory prepared for the pdfcpu extractor")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "loglevel",
		"maxfilesize", "maxdepth", "concurrency", "pdfworkdir",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Doc Extract - A Model Context Protocol server extracting text from documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/docs                      "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/docs        # HTTP API\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # HTTP API on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_DIR         Document directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_MAXFILESIZE Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_MAXDEPTH    Maximum parser nesting depth\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_CONCURRENCY Batch worker limit\n")
		fmt.Fprintf(os.Stderr, "  MCP_DOC_PDFWORKDIR  pdfcpu working directory\n")
	}
}

// checkVersionFlag reports whether a version flag is present in args
func checkVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.MaxDepth = viper.GetInt("maxdepth")
	cfg.Concurrency = viper.GetInt("concurrency")
	cfg.PDFWorkDir = viper.GetString("pdfworkdir")
}

// Validate checks if the configuration is valid. A missing document directory is created.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters for the HTTP API
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("document directory cannot be empty")
	}
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create document directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access document directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxDepth <= 0 {
		return errors.New("maximum depth must be positive")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.PDFWorkDir == "" {
		return errors.New("pdfcpu working directory cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ExtractionConfig returns the per-request defaults derived from this configuration
func (c *Config) ExtractionConfig() types.ExtractionConfig {
	cfg := *types.DefaultExtractionConfig()
	cfg.MaxDepth = c.MaxDepth
	return cfg
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, "+
		"MaxFileSize: %d, MaxDepth: %d, Concurrency: %d, PDFWorkDir: %s}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel,
		c.MaxFileSize, c.MaxDepth, c.Concurrency, c.PDFWorkDir)
}

// IsServerMode returns true when the HTTP API is served
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true when MCP is served over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
