// Package engine is the entry point for extraction: it owns the default
// registry and adds file handling, MIME detection and batch processing on top
// of dispatch.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/extractors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const (
	// DefaultMaxFileSize bounds inputs when no limit is configured
	DefaultMaxFileSize int64 = 100 * 1024 * 1024
	// DefaultConcurrency is the batch worker limit
	DefaultConcurrency = 4
)

// Engine runs extraction requests against a registry
type Engine struct {
	registry    *registry.Registry
	manager     *native.Manager
	logger      *slog.Logger
	maxFileSize int64
	concurrency int
	defaults    types.ExtractionConfig
}

// Option configures an Engine
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxFileSize sets the input size limit; zero or negative keeps the default
func WithMaxFileSize(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

// WithConcurrency sets how many files BatchExtractFiles processes at once
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithExtractionConfig sets the defaults merged into every request's config
func WithExtractionConfig(cfg types.ExtractionConfig) Option {
	return func(e *Engine) {
		e.defaults = cfg
	}
}

// WithNativeManager sets the lifecycle manager handed to the pdfcpu extractor
func WithNativeManager(m *native.Manager) Option {
	return func(e *Engine) {
		e.manager = m
	}
}

// WithRegistry replaces the default registry. The engine takes ownership and closes it.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// New creates an engine. Unless WithRegistry is given, the built-in extractors are registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.Default(),
		maxFileSize: DefaultMaxFileSize,
		concurrency: DefaultConcurrency,
		defaults:    *types.DefaultExtractionConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := NewRegistry(e.manager, e.logger)
		if err != nil {
			return nil, err
		}
		e.registry = reg
	}
	return e, nil
}

// NewRegistry returns a registry holding every built-in extractor
func NewRegistry(manager *native.Manager, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.New(registry.WithLogger(logger))
	for _, ext := range extractors.Builtins(manager) {
		if err := reg.Register(ext); err != nil {
			_ = reg.Close()
			return nil, err
		}
	}
	return reg, nil
}

// Registry exposes the underlying registry, for registering custom extractors
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// MaxFileSize returns the configured input size limit
func (e *Engine) MaxFileSize() int64 {
	return e.maxFileSize
}

// Concurrency returns the batch worker limit
func (e *Engine) Concurrency() int {
	return e.concurrency
}

// config fills the zero fields of cfg from the engine defaults
func (e *Engine) config(cfg *types.ExtractionConfig) *types.ExtractionConfig {
	merged := e.defaults
	if cfg != nil {
		if cfg.MaxDepth > 0 {
			merged.MaxDepth = cfg.MaxDepth
		}
		if cfg.PageSeparator != "" {
			merged.PageSeparator = cfg.PageSeparator
		}
		if cfg.MaxContentBytes > 0 {
			merged.MaxContentBytes = cfg.MaxContentBytes
		}
	}
	return &merged
}

func (e *Engine) limit(cfg *types.ExtractionConfig) int64 {
	if cfg.MaxContentBytes > 0 {
		return cfg.MaxContentBytes
	}
	return e.maxFileSize
}

// ExtractBytes extracts content of the given MIME type. A blank MIME type is detected from the bytes.
func (e *Engine) ExtractBytes(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if len(content) == 0 {
		return nil, errors.Validation("content cannot be empty", nil)
	}

	effective := e.config(cfg)
	if limit := e.limit(effective); int64(len(content)) > limit {
		return nil, errors.Validation(fmt.Sprintf("content size %d exceeds limit %d", len(content), limit), nil)
	}

	mimeType = mime.Normalize(mimeType)
	if mimeType == "" {
		detected, err := mime.DetectFromBytes(content)
		if err != nil {
			return nil, err
		}
		mimeType = detected
	}

	start := time.Now()
	result, err := e.registry.Dispatch(ctx, types.ExtractionRequest{
		Content:  content,
		MimeType: mimeType,
		Config:   effective,
	})
	if err != nil {
		e.logger.Debug("extraction failed", "mime_type", mimeType, "bytes", len(content), "error", err)
		return nil, err
	}

	e.logger.Debug("extraction complete",
		"mime_type", mimeType,
		"bytes", len(content),
		"duration", time.Since(start))
	return result, nil
}

// ExtractFile reads path and extracts it. Without an explicit MIME type the
// extension is consulted first, then the leading bytes.
func (e *Engine) ExtractFile(ctx context.Context, path, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	effective := e.config(cfg)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Io("failed to access file "+path, err)
	}
	if info.IsDir() {
		return nil, errors.Validation("path is a directory: "+path, nil)
	}
	if limit := e.limit(effective); info.Size() > limit {
		return nil, errors.Validation(fmt.Sprintf("file size %d exceeds limit %d", info.Size(), limit), nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Io("failed to read file "+path, err)
	}
	if len(content) == 0 {
		return nil, errors.Validation("file is empty: "+path, nil)
	}

	if mime.Normalize(mimeType) == "" {
		if m, ok := mime.FromPath(path); ok {
			mimeType = m
		}
	}
	return e.ExtractBytes(ctx, content, mimeType, effective)
}

// BatchResult is the outcome for one file of a batch
type BatchResult struct {
	Path   string
	Result *types.ExtractionResult
	Err    error
}

// BatchExtractFiles extracts every path with bounded parallelism. Results are
// returned in input order; a failing file does not stop the others.
func (e *Engine) BatchExtractFiles(ctx context.Context, paths []string, cfg *types.ExtractionConfig) []BatchResult {
	results := make([]BatchResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			result, err := e.ExtractFile(gctx, path, "", cfg)
			results[i] = BatchResult{Path: path, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DetectMime identifies content from its bytes
func (e *Engine) DetectMime(content []byte) (string, error) {
	return mime.DetectFromBytes(content)
}

// DetectFileMime identifies a file by extension, falling back to its leading bytes
func (e *Engine) DetectFileMime(path string) (string, error) {
	if m, ok := mime.FromPath(path); ok {
		return m, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Io("failed to open file "+path, err)
	}
	defer f.Close()

	head := make([]byte, 8192)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Io("failed to read file "+path, err)
	}
	return mime.DetectFromBytes(head[:n])
}

// Extractors describes the registered extractors in registration order
func (e *Engine) Extractors() []registry.Descriptor {
	return e.registry.List()
}

// SupportedMimeTypes lists every MIME type some extractor claims
func (e *Engine) SupportedMimeTypes() []string {
	return e.registry.SupportedMimeTypes()
}

// Supports reports whether an extractor is registered for mimeType
func (e *Engine) Supports(mimeType string) bool {
	return len(e.registry.Candidates(mimeType)) > 0
}

// Close shuts down every registered extractor
func (e *Engine) Close() error {
	return e.registry.Close()
}
