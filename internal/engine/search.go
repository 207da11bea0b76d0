package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/security"
)

// DocumentInfo describes a file some extractor can handle
type DocumentInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	ModifiedTime string `json:"modified_time"`
}

// SearchResult lists the documents found under a directory
type SearchResult struct {
	Files       []DocumentInfo `json:"files"`
	TotalCount  int            `json:"total_count"`
	Directory   string         `json:"directory"`
	SearchQuery string         `json:"search_query,omitempty"`
}

// SearchDirectory walks dir for files whose extension maps to a supported
// MIME type. Hidden directories, oversized files and entries that resolve
// outside dir are skipped. A non-empty query filters by file name, case-insensitively.
// limit <= 0 means no limit.
func (e *Engine) SearchDirectory(ctx context.Context, dir, query string, limit int) (*SearchResult, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.Validation("directory cannot be empty", nil)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Validation("failed to resolve directory path", err)
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	files := make([]DocumentInfo, 0)

	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if path == absDir && err != nil {
			return err
		}
		if err != nil {
			// Unreadable entries are skipped
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		within, err := security.Within(path, absDir)
		if err != nil || !within {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && len(files) >= limit {
			return filepath.SkipAll
		}

		mimeType, ok := mime.FromPath(d.Name())
		if !ok || !e.Supports(mimeType) {
			return nil
		}
		if needle != "" && !strings.Contains(strings.ToLower(d.Name()), needle) {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() == 0 || info.Size() > e.maxFileSize {
			return nil
		}

		files = append(files, DocumentInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			MimeType:     mimeType,
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if walkErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(errors.KindOther, "search cancelled", ctxErr)
		}
		return nil, errors.Io("error walking directory", walkErr)
	}

	return &SearchResult{
		Files:       files,
		TotalCount:  len(files),
		Directory:   absDir,
		SearchQuery: query,
	}, nil
}
