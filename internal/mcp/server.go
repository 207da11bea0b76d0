// Package mcp exposes the extraction engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-doc-extract/internal/config"
	"github.com/a3tai/mcp-doc-extract/internal/descriptions"
	"github.com/a3tai/mcp-doc-extract/internal/engine"
	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/security"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	engine    *engine.Engine
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance. File-based tools are confined to cfg.Directory.
func NewServer(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		engine:    eng,
		paths:     paths,
		mcpServer: mcpServer,
		logger:    logger,
	}
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolExtractFile,
		mcp.WithDescription(descriptions.ExtractFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the document, absolute or relative to the configured directory"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the document (detected when omitted)"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum nesting depth for LaTeX and RTF parsing"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Truncate the returned content to this many characters"),
		),
	), s.handleExtractFile)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolExtractContent,
		mcp.WithDescription(descriptions.ExtractContentDescription),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Document content, as text or base64"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the content (detected when omitted)"),
		),
		mcp.WithString("encoding",
			mcp.Description("How content is encoded"),
			mcp.Enum(encodingText, encodingBase64),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum nesting depth for LaTeX and RTF parsing"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Truncate the returned content to this many characters"),
		),
	), s.handleExtractContent)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolBatchExtract,
		mcp.WithDescription(descriptions.BatchExtractDescription),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Paths to the documents"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Truncate each file's content to this many characters"),
		),
	), s.handleBatchExtract)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolDetectMime,
		mcp.WithDescription(descriptions.DetectMimeDescription),
		mcp.WithString("path",
			mcp.Description("Path to a file"),
		),
		mcp.WithString("content",
			mcp.Description("Inline content, used when path is empty"),
		),
		mcp.WithString("encoding",
			mcp.Description("How content is encoded"),
			mcp.Enum(encodingText, encodingBase64),
		),
	), s.handleDetectMime)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolListExtractors,
		mcp.WithDescription(descriptions.ListExtractorsDescription),
	), s.handleListExtractors)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolSearchDocuments,
		mcp.WithDescription(descriptions.SearchDocumentsDescription),
		mcp.WithString("directory",
			mcp.Description("Directory to search (uses the configured directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive file name filter"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of files to return"),
		),
	), s.handleSearchDocuments)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

const (
	encodingText   = "text"
	encodingBase64 = "base64"
)

// Handler functions
func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return toolError(err), nil
	}

	result, err := s.engine.ExtractFile(ctx, resolved, stringArg(args, "mime_type"), extractionConfig(args))
	if err != nil {
		s.logger.Debug("extract_file failed", "path", resolved, "error", err)
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatExtraction(resolved, result, intArg(args, "max_chars"))), nil
}

func (s *Server) handleExtractContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	content, err := decodeContent(raw, stringArg(args, "encoding"))
	if err != nil {
		return toolError(err), nil
	}

	result, err := s.engine.ExtractBytes(ctx, content, stringArg(args, "mime_type"), extractionConfig(args))
	if err != nil {
		s.logger.Debug("extract_content failed", "bytes", len(content), "error", err)
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatExtraction("", result, intArg(args, "max_chars"))), nil
}

func (s *Server) handleBatchExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	paths := stringSliceArg(args, "paths")
	if len(paths) == 0 {
		return mcp.NewToolResultError("required argument \"paths\" not found or empty"), nil
	}

	// Paths that fail confinement keep their slot with the validation error
	results := make([]engine.BatchResult, len(paths))
	valid := make([]string, 0, len(paths))
	slots := make([]int, 0, len(paths))
	for i, p := range paths {
		resolved, err := s.paths.Resolve(p)
		if err != nil {
			results[i] = engine.BatchResult{Path: p, Err: err}
			continue
		}
		valid = append(valid, resolved)
		slots = append(slots, i)
	}

	for j, r := range s.engine.BatchExtractFiles(ctx, valid, extractionConfig(args)) {
		results[slots[j]] = r
	}

	return mcp.NewToolResultText(formatBatch(results, intArg(args, "max_chars"))), nil
}

func (s *Server) handleDetectMime(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if path := stringArg(args, "path"); path != "" {
		resolved, err := s.paths.Resolve(path)
		if err != nil {
			return toolError(err), nil
		}
		mimeType, err := s.engine.DetectFileMime(resolved)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(formatDetection(resolved, mimeType, s.engine.Supports(mimeType))), nil
	}

	raw := stringArg(args, "content")
	if raw == "" {
		return mcp.NewToolResultError("either path or content is required"), nil
	}
	content, err := decodeContent(raw, stringArg(args, "encoding"))
	if err != nil {
		return toolError(err), nil
	}
	mimeType, err := s.engine.DetectMime(content)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatDetection("", mimeType, s.engine.Supports(mimeType))), nil
}

func (s *Server) handleListExtractors(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatExtractors(s.engine.Extractors())), nil
}

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	directory, err := s.paths.ResolveDirectory(stringArg(args, "directory"))
	if err != nil {
		return toolError(err), nil
	}

	query := stringArg(args, "query")
	result, err := s.engine.SearchDirectory(ctx, directory, query, intArg(args, "limit"))
	if err != nil {
		return toolError(err), nil
	}

	if result.TotalCount == 0 {
		text := fmt.Sprintf("No documents found in directory: %s", result.Directory)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultText(formatSearch(result)), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatServerInfo(s.config, s.engine)), nil
}

// Run serves MCP over standard I/O until ctx is cancelled or stdin closes
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server in stdio mode",
		"name", s.config.ServerName,
		"version", s.config.Version,
		"directory", s.config.Directory)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// toolError renders an extraction error for the client, prefixed with its kind
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s error: %v", errors.KindOf(err), err))
}

func decodeContent(raw, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", encodingText:
		return []byte(raw), nil
	case encodingBase64:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.Validation("content is not valid base64", err)
		}
		return data, nil
	default:
		return nil, errors.Validation("unknown encoding: "+encoding, nil)
	}
}

// extractionConfig builds per-request overrides; zero fields fall back to the engine defaults
func extractionConfig(args map[string]any) *types.ExtractionConfig {
	return &types.ExtractionConfig{MaxDepth: intArg(args, "max_depth")}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// intArg reads a JSON number argument; missing or malformed values are 0
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func stringSliceArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
