// Package extractors holds the built-in Extractor implementations registered
// by the engine.
package extractors

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
)

// Version is reported by every built-in extractor
const Version = "1.0.0"

// Builtins returns the default extractor set. The pdfcpu extractor acquires
// its handles from manager, or from the process-wide manager when nil.
func Builtins(manager *native.Manager) []registry.Extractor {
	return []registry.Extractor{
		NewLaTeX(),
		NewRTF(),
		NewPDFText(),
		NewPDFCPU(manager),
		NewHTMLMarkdown(),
		NewHTML(),
		NewEPUB(),
		NewDOCX(),
		NewODT(),
		NewStructuredText(),
		NewPlainText(),
	}
}

// decodeText turns raw bytes into valid UTF-8, dropping a leading byte order mark
func decodeText(content []byte) string {
	s := string(content)
	s = strings.TrimPrefix(s, "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return s
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.KindOther, "extraction cancelled", err)
	}
	return nil
}
