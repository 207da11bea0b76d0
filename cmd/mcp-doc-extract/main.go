package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-doc-extract/internal/config"
	"github.com/a3tai/mcp-doc-extract/internal/engine"
	"github.com/a3tai/mcp-doc-extract/internal/httpapi"
	"github.com/a3tai/mcp-doc-extract/internal/mcp"
	"github.com/a3tai/mcp-doc-extract/internal/native"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// parseLevel maps a configured level name onto slog; unknown names mean info
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. stdout carries the MCP protocol in
// stdio mode, so logs go to w (stderr) and are dropped unless debug is on.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(cfg.LogLevel),
		AddSource: cfg.IsServerMode() && cfg.IsDebug(),
	}))
}

// newEngine wires the pdfcpu lifecycle manager and the built-in extractors from configuration
func newEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	manager := native.Shared(
		native.WithWorkDir(cfg.PDFWorkDir),
		native.WithLogger(logger),
	)
	return engine.New(
		engine.WithLogger(logger),
		engine.WithNativeManager(manager),
		engine.WithMaxFileSize(cfg.MaxFileSize),
		engine.WithConcurrency(cfg.Concurrency),
		engine.WithExtractionConfig(cfg.ExtractionConfig()),
	)
}

// run serves until ctx is cancelled: the HTTP API in server mode, MCP over stdio otherwise
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	eng, err := newEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("extractor shutdown failed", "error", err)
		}
	}()

	if cfg.IsServerMode() {
		return httpapi.New(eng, logger).ListenAndServe(ctx, cfg.Address())
	}

	server, err := mcp.NewServer(cfg, eng, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if stderrors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Doc Extract\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
