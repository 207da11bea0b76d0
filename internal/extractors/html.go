package extractors

import (
	"context"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// HTMLMarkdown sanitizes HTML and converts it to CommonMark
type HTMLMarkdown struct {
	registry.Base
	policy *bluemonday.Policy
	conv   *converter.Converter
}

func NewHTMLMarkdown() *HTMLMarkdown {
	policy := bluemonday.UGCPolicy()
	policy.SkipElementsContent("head", "title", "script", "style", "noscript", "nav")

	return &HTMLMarkdown{
		Base: registry.Base{
			ExtractorName:    "html-markdown-extractor",
			ExtractorVersion: Version,
			MimeTypes:        []string{mime.HTML, mime.XHTML},
			Rank:             50,
		},
		policy: policy,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (e *HTMLMarkdown) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	doc, err := parseHTML(content)
	if err != nil {
		return nil, errors.Parsing("failed to parse HTML", err)
	}

	clean := e.policy.SanitizeBytes([]byte(decodeText(content)))
	markdown, err := e.conv.ConvertString(string(clean))
	if err != nil {
		return nil, errors.Parsing("failed to convert HTML to markdown", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, errors.Parsing("no text content found in HTML", nil)
	}

	result := types.NewResult(markdown, mimeType)
	result.Metadata = htmlMetadata(doc)
	result.Tables = htmlTables(doc)
	return result, nil
}

// HTML renders the visible DOM text without a markdown converter
type HTML struct {
	registry.Base
}

func NewHTML() *HTML {
	return &HTML{Base: registry.Base{
		ExtractorName:    "html-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.HTML, mime.XHTML},
		Rank:             40,
	}}
}

func (e *HTML) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	doc, err := parseHTML([]byte(decodeText(content)))
	if err != nil {
		return nil, errors.Parsing("failed to parse HTML", err)
	}

	result := types.NewResult(renderHTMLText(doc), mimeType)
	result.Metadata = htmlMetadata(doc)
	result.Tables = htmlTables(doc)
	return result, nil
}
