package extractors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	pdfcpulib "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// PDFText extracts per-page plain text with ledongthuc/pdf
type PDFText struct {
	registry.Base
}

func NewPDFText() *PDFText {
	return &PDFText{Base: registry.Base{
		ExtractorName:    "pdf-text-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.PDF},
		Rank:             50,
	}}
}

func (e *PDFText) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	reader, err := openPDF(content)
	if err != nil {
		return nil, errors.Parsing("failed to open PDF", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		// Pages that fail to decode are skipped
		if text := pageText(reader, pageNum); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, errors.Parsing("no text content could be extracted from PDF", nil)
	}

	result := types.NewResult(strings.Join(pages, cfg.Separator()), mimeType)
	result.Metadata.Set("page_count", reader.NumPage())
	readInfo(reader, &result.Metadata)
	return result, nil
}

// openPDF recovers from panics raised by the parser on malformed input
func openPDF(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

func pageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(content)
}

var infoKeys = map[string]string{
	"Title":        types.KeyTitle,
	"Author":       types.KeyAuthor,
	"Subject":      types.KeySubject,
	"Keywords":     "keywords",
	"Creator":      "creator",
	"Producer":     "producer",
	"CreationDate": "created_at",
	"ModDate":      "modified_at",
}

// pdfDate converts a PDF date string (D:YYYYMMDDHHmmSSOHH'mm') to RFC 3339.
// Unparseable values are kept as written.
func pdfDate(s string) string {
	if t, ok := pdftypes.DateTime(s, true); ok {
		return t.Format(time.RFC3339)
	}
	return s
}

func infoValue(key, v string) string {
	v = strings.TrimSpace(v)
	if key == "CreationDate" || key == "ModDate" {
		return pdfDate(v)
	}
	return v
}

// readInfo copies the trailer's Info dictionary into metadata
func readInfo(reader *pdf.Reader, meta *types.Metadata) {
	defer func() {
		_ = recover()
	}()

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	for key, field := range infoKeys {
		if v := info.Key(key); !v.IsNull() {
			meta.SetIfNotEmpty(field, infoValue(key, v.Text()))
		}
	}
	if meta.Author != "" {
		meta.Set(types.KeyAuthors, []string{meta.Author})
	}
}

// PDFCPU reads PDFs through the lifecycle-managed pdfcpu handle and recovers
// text from page content streams
type PDFCPU struct {
	registry.Base
	manager *native.Manager
}

func NewPDFCPU(manager *native.Manager) *PDFCPU {
	if manager == nil {
		manager = native.Shared()
	}
	return &PDFCPU{
		Base: registry.Base{
			ExtractorName:    "pdfcpu-extractor",
			ExtractorVersion: Version,
			MimeTypes:        []string{mime.PDF},
			Rank:             40,
		},
		manager: manager,
	}
}

func (e *PDFCPU) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	handle, err := e.manager.Acquire()
	if err != nil {
		return nil, err
	}

	pctx, err := readContext(handle, content)
	if err != nil {
		return nil, errors.Parsing("failed to read PDF", err)
	}

	pages := make([]string, 0, pctx.PageCount)
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		if text := contentStreamText(pctx, pageNr); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, errors.Parsing("no text content found in PDF content streams", nil)
	}

	result := types.NewResult(strings.Join(pages, cfg.Separator()), mimeType)
	meta := &result.Metadata
	meta.Set("page_count", pctx.PageCount)
	readInfoDict(pctx, meta)
	if pctx.HeaderVersion != nil {
		meta.Set("pdf_version", pctx.HeaderVersion.String())
	}
	return result, nil
}

func readContext(handle *native.Handle, content []byte) (pctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	return handle.ReadContext(bytes.NewReader(content))
}

// readInfoDict copies the trailer's Info dictionary into metadata.
// An unvalidated context leaves its Title/Author fields empty.
func readInfoDict(pctx *model.Context, meta *types.Metadata) {
	defer func() {
		_ = recover()
	}()

	if pctx.Info == nil {
		return
	}
	d, err := pctx.DereferenceDict(*pctx.Info)
	if err != nil || d == nil {
		return
	}
	for key, field := range infoKeys {
		o, found := d.Find(key)
		if !found || o == nil {
			continue
		}
		v, err := pctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
		if err != nil {
			continue
		}
		meta.SetIfNotEmpty(field, infoValue(key, v))
	}
	if meta.Author != "" {
		meta.Set(types.KeyAuthors, []string{meta.Author})
	}
}

func contentStreamText(pctx *model.Context, pageNr int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	r, err := pdfcpulib.ExtractPageContent(pctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return streamText(data)
}
