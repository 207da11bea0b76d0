package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-doc-extract/internal/engine"
	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 2
)

// FileOutput is the per-file record written in JSON mode
type FileOutput struct {
	Path      string         `json:"path"`
	MimeType  string         `json:"mime_type,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Tables    []types.Table  `json:"tables,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

type options struct {
	format      string
	concurrency int
	maxFileSize int64
	maxDepth    int
	query       string
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("doc_extract_batch", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.StringVar(&opts.format, "format", "json", "Output format: json, text")
	flags.IntVar(&opts.concurrency, "concurrency", engine.DefaultConcurrency, "Files extracted at once")
	flags.Int64Var(&opts.maxFileSize, "maxfilesize", engine.DefaultMaxFileSize, "Maximum file size in bytes")
	flags.IntVar(&opts.maxDepth, "maxdepth", types.DefaultMaxDepth, "Maximum nesting depth for LaTeX and RTF parsing")
	flags.StringVar(&opts.query, "query", "", "File name filter applied to directory arguments")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log progress to stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: doc_extract_batch [options] <file|directory>...\n\n")
		fmt.Fprintf(stderr, "Extract text, metadata and tables from documents concurrently.\n")
		fmt.Fprintf(stderr, "Directories are searched recursively for supported formats.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitFailure
	}
	if flags.NArg() == 0 {
		fmt.Fprintf(stderr, "Error: at least one file or directory is required\n\n")
		flags.Usage()
		return exitFailure
	}
	if opts.format != "json" && opts.format != "text" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return exitFailure
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	eng, err := engine.New(
		engine.WithLogger(logger),
		engine.WithNativeManager(native.Shared(native.WithLogger(logger))),
		engine.WithConcurrency(opts.concurrency),
		engine.WithMaxFileSize(opts.maxFileSize),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer eng.Close()

	paths, err := expandPaths(ctx, eng, flags.Args(), opts.query)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	logger.Debug("extracting", "files", len(paths), "concurrency", eng.Concurrency())

	results := eng.BatchExtractFiles(ctx, paths, &types.ExtractionConfig{MaxDepth: opts.maxDepth})
	outputs := make([]FileOutput, len(results))
	failed := 0
	for i, r := range results {
		outputs[i] = toOutput(r)
		if r.Err != nil {
			failed++
		}
	}

	if opts.format == "json" {
		err = writeJSON(stdout, outputs)
	} else {
		err = writeText(stdout, outputs)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error writing results: %v\n", err)
		return exitFailure
	}

	switch {
	case failed == 0:
		return exitOK
	case failed == len(outputs):
		return exitFailure
	default:
		return exitPartial
	}
}

// expandPaths replaces directory arguments by the supported documents found under them
func expandPaths(ctx context.Context, eng *engine.Engine, args []string, query string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported per file by the extraction itself
			paths = append(paths, arg)
			continue
		}
		found, err := eng.SearchDirectory(ctx, arg, query, 0)
		if err != nil {
			return nil, err
		}
		for _, f := range found.Files {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

func toOutput(r engine.BatchResult) FileOutput {
	out := FileOutput{Path: r.Path}
	if r.Err != nil {
		out.Error = r.Err.Error()
		out.ErrorKind = errors.KindOf(r.Err).String()
		return out
	}
	out.MimeType = r.Result.MimeType
	out.Content = r.Result.Content
	out.Metadata = r.Result.Metadata.Map()
	out.Tables = r.Result.Tables
	return out
}

func writeJSON(w io.Writer, outputs []FileOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}

func writeText(w io.Writer, outputs []FileOutput) error {
	var b strings.Builder
	for i, out := range outputs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", out.Path)
		if out.Error != "" {
			fmt.Fprintf(&b, "Error (%s): %s\n", out.ErrorKind, out.Error)
			continue
		}
		fmt.Fprintf(&b, "MIME Type: %s\n", out.MimeType)
		if title, ok := out.Metadata["title"]; ok {
			fmt.Fprintf(&b, "Title: %v\n", title)
		}
		fmt.Fprintf(&b, "\n%s\n", out.Content)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
