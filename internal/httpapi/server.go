// Package httpapi serves the extraction engine over HTTP.
package httpapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/mcp-doc-extract/internal/engine"
	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to an engine
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	router *chi.Mux
}

// New builds the router. A nil logger means slog.Default().
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: eng, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/extractors", s.handleExtractors)
		r.Post("/extract", s.handleExtract)
		r.Post("/detect", s.handleDetect)
	})

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("HTTP API shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"extractors": len(s.engine.Extractors()),
	})
}

// ExtractorsResponse is the body of GET /v1/extractors
type ExtractorsResponse struct {
	Extractors []registry.Descriptor `json:"extractors"`
	MimeTypes  []string              `json:"mime_types"`
}

func (s *Server) handleExtractors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ExtractorsResponse{
		Extractors: s.engine.Extractors(),
		MimeTypes:  s.engine.SupportedMimeTypes(),
	})
}

// handleExtract extracts the raw request body.
// POST /v1/extract
//
// The MIME type comes from the mime_type query parameter, then Content-Type.
// application/octet-stream or no type at all means detect from the bytes.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	content, ok := s.readBody(w, r)
	if !ok {
		return
	}

	mimeType := r.URL.Query().Get("mime_type")
	if mimeType == "" {
		mimeType = r.Header.Get("Content-Type")
	}
	if mime.Normalize(mimeType) == "application/octet-stream" {
		mimeType = ""
	}

	cfg := &types.ExtractionConfig{PageSeparator: r.URL.Query().Get("page_separator")}
	if v := r.URL.Query().Get("max_depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil || depth <= 0 {
			s.writeError(w, r, errors.Validation("max_depth must be a positive integer", nil))
			return
		}
		cfg.MaxDepth = depth
	}

	result, err := s.engine.ExtractBytes(r.Context(), content, mimeType, cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DetectResponse is the body of POST /v1/detect
type DetectResponse struct {
	MimeType  string   `json:"mime_type"`
	Supported bool     `json:"supported"`
	Extensions []string `json:"extensions,omitempty"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	content, ok := s.readBody(w, r)
	if !ok {
		return
	}

	mimeType, err := s.engine.DetectMime(content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exts, _ := mime.MimeToExtensions(mimeType)
	writeJSON(w, http.StatusOK, DetectResponse{
		MimeType:  mimeType,
		Supported: s.engine.Supports(mimeType),
		Extensions: exts,
	})
}

// readBody reads at most the engine's size limit; larger bodies get 413
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.engine.MaxFileSize()
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("request body exceeds limit %d", limit),
				Kind:  errors.KindValidation.String(),
			})
			return nil, false
		}
		s.writeError(w, r, errors.Io("failed to read request body", err))
		return nil, false
	}
	return content, true
}
