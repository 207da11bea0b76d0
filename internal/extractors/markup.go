package extractors

import (
	"context"

	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/parsers/latex"
	"github.com/a3tai/mcp-doc-extract/internal/parsers/rtf"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// LaTeX extracts text, metadata and tables from LaTeX sources
type LaTeX struct {
	registry.Base
}

func NewLaTeX() *LaTeX {
	return &LaTeX{Base: registry.Base{
		ExtractorName:    "latex-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.LaTeX, "text/x-tex"},
		Rank:             50,
	}}
}

func (e *LaTeX) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	doc := latex.Parse(decodeText(content), latex.Options{MaxDepth: cfg.Depth()})

	result := types.NewResult(doc.Text, mimeType)
	result.Metadata = doc.Metadata
	result.Tables = doc.Tables
	return result, nil
}

// RTF extracts text, metadata and tables from Rich Text Format documents
type RTF struct {
	registry.Base
}

func NewRTF() *RTF {
	return &RTF{Base: registry.Base{
		ExtractorName:    "rtf-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.RTF, "text/rtf"},
		Rank:             50,
	}}
}

func (e *RTF) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	doc := rtf.Parse(content, rtf.Options{MaxDepth: cfg.Depth()})

	result := types.NewResult(doc.Text, mimeType)
	result.Metadata = doc.Metadata
	result.Tables = doc.Tables
	return result, nil
}
