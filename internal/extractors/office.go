package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCX reads word/document.xml paragraphs and tables plus docProps/core.xml metadata
type DOCX struct {
	registry.Base
}

func NewDOCX() *DOCX {
	return &DOCX{Base: registry.Base{
		ExtractorName:    "docx-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.DOCX},
		Rank:             50,
	}}
}

func (e *DOCX) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Parsing("failed to open DOCX archive", err)
	}

	body, err := readZipEntry(archive, "word/document.xml")
	if err != nil {
		return nil, errors.Parsing("word/document.xml not found in archive", err)
	}
	text, tables, err := docxBody(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Parsing("malformed word/document.xml", err)
	}

	result := types.NewResult(text, mimeType)
	result.Tables = tables
	if core, err := readZipEntry(archive, "docProps/core.xml"); err == nil {
		docxMetadata(core, &result.Metadata)
	}
	return result, nil
}

func docxBody(r io.Reader) (string, []types.Table, error) {
	dec := xml.NewDecoder(r)
	var (
		out    outline
		tb     tableBuilder
		para   strings.Builder
		style  string
		inPara bool
		inText bool
	)
	tables := make([]types.Table, 0)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				para.Reset()
				style = ""
			case "pStyle":
				style = xmlAttr(t, "val")
			case "t":
				inText = true
			case "tab":
				if inPara {
					para.WriteByte(' ')
				}
			case "br", "cr":
				if inPara {
					para.WriteByte('\n')
				}
			case "tbl":
				tb.open()
			case "tr":
				tb.openRow()
			case "tc":
				tb.openCell()
			}
		case xml.CharData:
			if inPara && inText {
				para.Write(t)
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				text := cleanParagraph(para.String())
				switch {
				case tb.active():
					tb.addText(text)
				case text != "":
					out.block(headingPrefix(docxHeadingLevel(style)) + text)
				}
			case "tc":
				tb.closeCell()
			case "tr":
				tb.closeRow()
			case "tbl":
				if cells := tb.close(); len(cells) > 0 {
					tables = append(tables, types.NewTable(cells, 1))
					out.block(strings.TrimRight(types.RenderMarkdown(cells), "\n"))
				}
			}
		}
	}
	return out.String(), tables, nil
}

// docxHeadingLevel maps a paragraph style id to a heading level, 0 for body text
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			rest = strings.TrimSpace(rest)
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

type coreProperties struct {
	Title          string `xml:"title"`
	Creator        string `xml:"creator"`
	Subject        string `xml:"subject"`
	Description    string `xml:"description"`
	Keywords       string `xml:"keywords"`
	Language       string `xml:"language"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

func docxMetadata(data []byte, meta *types.Metadata) {
	var core coreProperties
	if err := xml.Unmarshal(data, &core); err != nil {
		return
	}
	meta.SetIfNotEmpty(types.KeyTitle, strings.TrimSpace(core.Title))
	if author := strings.TrimSpace(core.Creator); author != "" {
		meta.Set(types.KeyAuthor, author)
		meta.Set(types.KeyAuthors, []string{author})
	}
	meta.SetIfNotEmpty(types.KeySubject, strings.TrimSpace(core.Subject))
	meta.SetIfNotEmpty(types.KeyDescription, strings.TrimSpace(core.Description))
	meta.SetIfNotEmpty(types.KeyLanguage, strings.TrimSpace(core.Language))
	meta.SetIfNotEmpty(types.KeyDate, strings.TrimSpace(core.Created))
	meta.SetIfNotEmpty("keywords", strings.TrimSpace(core.Keywords))
	meta.SetIfNotEmpty("last_modified_by", strings.TrimSpace(core.LastModifiedBy))
	meta.SetIfNotEmpty("modified_at", strings.TrimSpace(core.Modified))
}

// ODT reads OpenDocument text from content.xml and metadata from meta.xml
type ODT struct {
	registry.Base
}

func NewODT() *ODT {
	return &ODT{Base: registry.Base{
		ExtractorName:    "odt-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.ODT},
		Rank:             50,
	}}
}

func (e *ODT) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Parsing("failed to open ODT archive", err)
	}

	body, err := readZipEntry(archive, "content.xml")
	if err != nil {
		return nil, errors.Parsing("content.xml not found in archive", err)
	}
	text, tables, err := odtBody(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Parsing("malformed content.xml", err)
	}

	result := types.NewResult(text, mimeType)
	result.Tables = tables
	if meta, err := readZipEntry(archive, "meta.xml"); err == nil {
		odtMetadata(meta, &result.Metadata)
	}
	return result, nil
}

// odtSkipped elements carry text that is not part of the document body
var odtSkipped = map[string]bool{
	"annotation":      true,
	"note":            true,
	"tracked-changes": true,
}

func odtBody(r io.Reader) (string, []types.Table, error) {
	dec := xml.NewDecoder(r)
	var (
		out       outline
		tb        tableBuilder
		para      strings.Builder
		inBlock   bool
		level     int
		listDepth int
		freshItem bool
		skip      int
	)
	tables := make([]types.Table, 0)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skip > 0 || odtSkipped[t.Name.Local] {
				skip++
				continue
			}
			switch t.Name.Local {
			case "h":
				inBlock = true
				para.Reset()
				level = 1
				if n, err := strconv.Atoi(xmlAttr(t, "outline-level")); err == nil && n > 0 {
					level = min(n, 6)
				}
			case "p":
				inBlock = true
				para.Reset()
				level = 0
			case "s":
				if inBlock {
					n, err := strconv.Atoi(xmlAttr(t, "c"))
					if err != nil || n < 1 {
						n = 1
					}
					para.WriteString(strings.Repeat(" ", n))
				}
			case "tab":
				if inBlock {
					para.WriteByte(' ')
				}
			case "line-break":
				if inBlock {
					para.WriteByte('\n')
				}
			case "list":
				listDepth++
			case "list-item":
				freshItem = true
			case "table":
				tb.open()
			case "table-row":
				tb.openRow()
			case "table-cell", "covered-table-cell":
				tb.openCell()
			}
		case xml.CharData:
			if inBlock && skip == 0 {
				para.Write(t)
			}
		case xml.EndElement:
			if skip > 0 {
				skip--
				continue
			}
			switch t.Name.Local {
			case "h", "p":
				inBlock = false
				text := cleanParagraph(para.String())
				switch {
				case tb.active():
					tb.addText(text)
				case text == "":
				case listDepth > 0:
					indent := strings.Repeat("  ", listDepth-1)
					if freshItem {
						out.line(indent + "- " + text)
						freshItem = false
					} else {
						out.line(indent + "  " + text)
					}
				default:
					out.block(headingPrefix(level) + text)
				}
			case "list":
				if listDepth > 0 {
					listDepth--
				}
			case "table":
				if cells := tb.close(); len(cells) > 0 {
					tables = append(tables, types.NewTable(cells, 1))
					out.block(strings.TrimRight(types.RenderMarkdown(cells), "\n"))
				}
			case "table-row":
				tb.closeRow()
			case "table-cell", "covered-table-cell":
				tb.closeCell()
			}
		}
	}
	return out.String(), tables, nil
}

type odfMeta struct {
	Title          string   `xml:"meta>title"`
	Creator        string   `xml:"meta>creator"`
	InitialCreator string   `xml:"meta>initial-creator"`
	Subject        string   `xml:"meta>subject"`
	Description    string   `xml:"meta>description"`
	Language       string   `xml:"meta>language"`
	Date           string   `xml:"meta>date"`
	Created        string   `xml:"meta>creation-date"`
	Keywords       []string `xml:"meta>keyword"`
}

func odtMetadata(data []byte, meta *types.Metadata) {
	var m odfMeta
	if err := xml.Unmarshal(data, &m); err != nil {
		return
	}
	meta.SetIfNotEmpty(types.KeyTitle, strings.TrimSpace(m.Title))
	author := strings.TrimSpace(m.InitialCreator)
	if author == "" {
		author = strings.TrimSpace(m.Creator)
	}
	if author != "" {
		meta.Set(types.KeyAuthor, author)
		meta.Set(types.KeyAuthors, []string{author})
	}
	meta.SetIfNotEmpty(types.KeySubject, strings.TrimSpace(m.Subject))
	meta.SetIfNotEmpty(types.KeyDescription, strings.TrimSpace(m.Description))
	meta.SetIfNotEmpty(types.KeyLanguage, strings.TrimSpace(m.Language))
	date := strings.TrimSpace(m.Created)
	if date == "" {
		date = strings.TrimSpace(m.Date)
	}
	meta.SetIfNotEmpty(types.KeyDate, date)
	if keywords := nonEmpty(m.Keywords); len(keywords) > 0 {
		meta.Set("keywords", strings.Join(keywords, ", "))
	}
}

func xmlAttr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func headingPrefix(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("#", level) + " "
}

// cleanParagraph folds runs of spaces on each line and trims the paragraph
func cleanParagraph(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// outline collects paragraphs separated by blank lines; consecutive list
// lines stay on adjacent lines
type outline struct {
	b        strings.Builder
	listLine bool
}

func (o *outline) block(s string) {
	if o.b.Len() > 0 {
		o.b.WriteString("\n\n")
	}
	o.b.WriteString(s)
	o.listLine = false
}

func (o *outline) line(s string) {
	if o.listLine {
		o.b.WriteByte('\n')
		o.b.WriteString(s)
		return
	}
	o.block(s)
	o.listLine = true
}

func (o *outline) String() string {
	return o.b.String()
}

// tableBuilder accumulates the rows of the outermost open table. Nested
// tables are flattened into the enclosing cell.
type tableBuilder struct {
	depth    int
	rows     [][]string
	row      []string
	cell     []string
	cellOpen bool
}

func (b *tableBuilder) active() bool {
	return b.depth > 0
}

func (b *tableBuilder) open() {
	b.depth++
	if b.depth == 1 {
		b.rows = nil
	}
}

func (b *tableBuilder) openRow() {
	if b.depth == 1 {
		b.row = nil
	}
}

func (b *tableBuilder) openCell() {
	if b.depth == 1 {
		b.cell = b.cell[:0]
		b.cellOpen = true
	}
}

func (b *tableBuilder) addText(s string) {
	if s != "" && b.cellOpen {
		b.cell = append(b.cell, s)
	}
}

func (b *tableBuilder) closeCell() {
	if b.depth == 1 && b.cellOpen {
		b.row = append(b.row, strings.Join(b.cell, " "))
		b.cellOpen = false
	}
}

func (b *tableBuilder) closeRow() {
	if b.depth == 1 && len(b.row) > 0 {
		b.rows = append(b.rows, b.row)
		b.row = nil
	}
}

// close ends the innermost table and returns the rows once the outermost one closes
func (b *tableBuilder) close() [][]string {
	if b.depth == 0 {
		return nil
	}
	b.depth--
	if b.depth > 0 {
		return nil
	}
	rows := b.rows
	b.rows = nil
	return rows
}
