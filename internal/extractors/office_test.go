package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
)

const docxDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>` +
	`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
	`<w:p><w:r><w:t>Line</w:t><w:br/><w:t>break</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>` +
	`<w:p></w:p>` +
	`</w:body></w:document>`

const docxCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
  <dc:title>Quarterly Report</dc:title>
  <dc:creator>Jane Doe</dc:creator>
  <cp:keywords>finance, q1</cp:keywords>
  <cp:lastModifiedBy>John Doe</cp:lastModifiedBy>
  <dcterms:created>2024-01-02T03:04:05Z</dcterms:created>
</cp:coreProperties>`

func TestDOCX_Extract(t *testing.T) {
	content := buildZip(t,
		zipEntry{"[Content_Types].xml", `<Types/>`},
		zipEntry{"word/document.xml", docxDocumentXML},
		zipEntry{"docProps/core.xml", docxCoreXML},
	)

	result, err := NewDOCX().Extract(context.Background(), content, mime.DOCX, nil)
	require.NoError(t, err)

	assert.Equal(t, "# Intro\n\nHello world\n\n| A | B |\n|---|---|\n| 1 | 2 |\n\nLine\nbreak\n\na b", result.Content)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}}, result.Tables[0].Cells)

	meta := result.Metadata
	assert.Equal(t, "Quarterly Report", meta.Title)
	assert.Equal(t, "Jane Doe", meta.Author)
	assert.Equal(t, []string{"Jane Doe"}, meta.Authors)
	assert.Equal(t, "2024-01-02T03:04:05Z", meta.Date)
	keywords, _ := meta.Get("keywords")
	assert.Equal(t, "finance, q1", keywords)
	modifiedBy, _ := meta.Get("last_modified_by")
	assert.Equal(t, "John Doe", modifiedBy)
}

func TestDOCX_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content func(t *testing.T) []byte
	}{
		{name: "not an archive", content: func(t *testing.T) []byte { return []byte("nope") }},
		{name: "missing document", content: func(t *testing.T) []byte {
			return buildZip(t, zipEntry{"docProps/core.xml", docxCoreXML})
		}},
		{name: "malformed document", content: func(t *testing.T) []byte {
			return buildZip(t, zipEntry{"word/document.xml", `<w:document xmlns:w="x"><w:body></w:document>`})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDOCX().Extract(context.Background(), tt.content(t), mime.DOCX, nil)
			require.Error(t, err)
			assert.Equal(t, errors.KindParsing, errors.KindOf(err))
		})
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := []struct {
		style    string
		expected int
	}{
		{"Heading1", 1},
		{"heading 2", 2},
		{"Heading6", 6},
		{"Heading7", 0},
		{"Title", 1},
		{"Subtitle", 2},
		{"Titre3", 3},
		{"Überschrift4", 4},
		{"Normal", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.expected, docxHeadingLevel(tt.style))
		})
	}
}

const odtContentXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"><office:body><office:text>` +
	`<text:h text:outline-level="2">Section</text:h>` +
	`<text:p>Hello<text:s text:c="2"/>world<office:annotation><text:p>comment</text:p></office:annotation></text:p>` +
	`<text:list><text:list-item><text:p>First</text:p></text:list-item>` +
	`<text:list-item><text:p>Second</text:p><text:list><text:list-item><text:p>Nested</text:p></text:list-item></text:list></text:list-item></text:list>` +
	`<table:table><table:table-row><table:table-cell><text:p>X</text:p></table:table-cell>` +
	`<table:table-cell><text:p>Y</text:p></table:table-cell></table:table-row></table:table>` +
	`<text:p>End<text:line-break/>line<text:note><text:note-citation>1</text:note-citation>` +
	`<text:note-body><text:p>footnote</text:p></text:note-body></text:note></text:p>` +
	`</office:text></office:body></office:document-content>`

const odtMetaXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <office:meta>
    <dc:title>ODT Doc</dc:title>
    <meta:initial-creator>Olga</meta:initial-creator>
    <dc:creator>Editor</dc:creator>
    <dc:language>de</dc:language>
    <meta:keyword>x</meta:keyword>
    <meta:keyword>y</meta:keyword>
    <meta:creation-date>2023-05-06T07:08:09</meta:creation-date>
  </office:meta>
</office:document-meta>`

func TestODT_Extract(t *testing.T) {
	content := buildZip(t,
		zipEntry{"mimetype", mime.ODT},
		zipEntry{"content.xml", odtContentXML},
		zipEntry{"meta.xml", odtMetaXML},
	)

	result, err := NewODT().Extract(context.Background(), content, mime.ODT, nil)
	require.NoError(t, err)

	assert.Equal(t, "## Section\n\nHello world\n\n- First\n- Second\n  - Nested\n\n| X | Y |\n\nEnd\nline", result.Content)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, [][]string{{"X", "Y"}}, result.Tables[0].Cells)

	meta := result.Metadata
	assert.Equal(t, "ODT Doc", meta.Title)
	assert.Equal(t, "Olga", meta.Author)
	assert.Equal(t, "de", meta.Language)
	assert.Equal(t, "2023-05-06T07:08:09", meta.Date)
	keywords, _ := meta.Get("keywords")
	assert.Equal(t, "x, y", keywords)
}

func TestODT_MissingContent(t *testing.T) {
	content := buildZip(t, zipEntry{"meta.xml", odtMetaXML})
	_, err := NewODT().Extract(context.Background(), content, mime.ODT, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindParsing, errors.KindOf(err))
}

func TestTableBuilder(t *testing.T) {
	var tb tableBuilder
	assert.False(t, tb.active())
	assert.Nil(t, tb.close())

	tb.open()
	tb.openRow()
	tb.openCell()
	tb.addText("a")
	tb.open()
	tb.openRow()
	tb.openCell()
	tb.addText("b")
	tb.closeCell()
	tb.closeRow()
	assert.Nil(t, tb.close())
	tb.closeCell()
	tb.closeRow()

	assert.Equal(t, [][]string{{"a b"}}, tb.close())
	assert.False(t, tb.active())
}
