package extractors

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// StructuredText validates JSON, YAML, TOML and XML documents and returns them verbatim
type StructuredText struct {
	registry.Base
}

func NewStructuredText() *StructuredText {
	return &StructuredText{Base: registry.Base{
		ExtractorName:    "structured-text-extractor",
		ExtractorVersion: Version,
		MimeTypes: []string{
			mime.JSON,
			mime.YAML, "application/yaml", "text/yaml",
			mime.TOML,
			mime.XML, "text/xml",
		},
		Rank: 50,
	}}
}

func structuredFormat(mimeType string) string {
	switch mimeType {
	case mime.JSON:
		return "json"
	case mime.YAML, "application/yaml", "text/yaml":
		return "yaml"
	case mime.TOML:
		return "toml"
	case mime.XML, "text/xml":
		return "xml"
	}
	return ""
}

func (e *StructuredText) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	text := decodeText(content)
	format := structuredFormat(mimeType)

	var (
		doc any
		err error
	)
	switch format {
	case "json":
		err = json.Unmarshal([]byte(text), &doc)
	case "yaml":
		err = yaml.Unmarshal([]byte(text), &doc)
	case "toml":
		var table map[string]any
		err = toml.Unmarshal([]byte(text), &table)
		doc = table
	case "xml":
		doc, err = xmlRoot(text)
	default:
		return nil, errors.UnsupportedFormat(mimeType)
	}
	if err != nil {
		return nil, errors.Parsing("invalid "+strings.ToUpper(format)+" document", err)
	}

	result := types.NewResult(text, mimeType)
	result.Metadata.Set("format", format)
	if fields, ok := doc.(map[string]any); ok {
		for _, key := range []string{types.KeyTitle, types.KeyAuthor, types.KeyDescription} {
			if s, ok := fields[key].(string); ok {
				result.Metadata.SetIfNotEmpty(key, strings.TrimSpace(s))
			}
		}
		if result.Metadata.Author != "" {
			result.Metadata.Set(types.KeyAuthors, []string{result.Metadata.Author})
		}
	}
	if root, ok := doc.(string); ok && root != "" {
		result.Metadata.Set("root_element", root)
	}
	return result, nil
}

// xmlRoot checks that text is well-formed XML with a single root element and returns its name
func xmlRoot(text string) (any, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	root := ""
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if root != "" {
					return nil, errors.Parsing("multiple root elements", nil)
				}
				root = t.Name.Local
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if root == "" {
		return nil, errors.Parsing("no root element", nil)
	}
	return root, nil
}

// PlainText passes text formats through with normalized line endings.
// CSV and TSV inputs also yield a table.
type PlainText struct {
	registry.Base
}

func NewPlainText() *PlainText {
	return &PlainText{Base: registry.Base{
		ExtractorName:    "plain-text-extractor",
		ExtractorVersion: Version,
		MimeTypes: []string{
			mime.PlainText, mime.Markdown, "text/x-markdown",
			mime.CSV, mime.TSV,
			"text/x-rst", "text/x-org", "application/x-bibtex", "text/x-commonmark",
		},
		Rank: 10,
	}}
}

func (e *PlainText) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(decodeText(content), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	result := types.NewResult(text, mimeType)
	switch mimeType {
	case mime.CSV:
		result.Tables = delimitedTable(text, ',')
	case mime.TSV:
		result.Tables = delimitedTable(text, '\t')
	case mime.Markdown, "text/x-markdown", "text/x-commonmark":
		result.Metadata.SetIfNotEmpty(types.KeyTitle, markdownTitle(text))
	}

	lines := 0
	if trimmed := strings.TrimRight(text, "\n"); trimmed != "" {
		lines = strings.Count(trimmed, "\n") + 1
	}
	result.Metadata.Set("line_count", lines)
	result.Metadata.Set("word_count", len(strings.Fields(text)))
	return result, nil
}

// delimitedTable parses text as delimited records; unparseable input yields no table
func delimitedTable(text string, comma rune) []types.Table {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil || len(rows) == 0 {
		return make([]types.Table, 0)
	}
	return []types.Table{types.NewTable(rows, 1)}
}

// markdownTitle returns the text of the first level-one ATX heading
func markdownTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(strings.TrimRight(title, "# "))
		}
	}
	return ""
}
