package mime

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

const (
	sniffLen     = 8192
	pdfSearchLen = 1024
)

// DetectFromBytes identifies content by magic-byte signatures and falls back
// to text heuristics. Binary data with no known signature is a Parsing error.
func DetectFromBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Validation("cannot detect MIME type of empty content", nil)
	}

	if m, ok := detectMagic(data); ok {
		if m == Zip {
			return detectZip(data), nil
		}
		return m, nil
	}

	if m, ok := detectText(data); ok {
		return m, nil
	}

	if m := Normalize(http.DetectContentType(data)); m != "application/octet-stream" {
		return m, nil
	}

	return "", errors.Parsing("unable to determine MIME type from content", nil)
}

func detectMagic(data []byte) (string, bool) {
	head := data
	if len(head) > pdfSearchLen {
		head = head[:pdfSearchLen]
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return PDF, true
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return Zip, true
	case bytes.HasPrefix(data, []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}):
		// OLE2 compound file; Word documents are the common case
		return MSWord, true
	case bytes.HasPrefix(data, []byte("{\\rtf")):
		return RTF, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, true
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF, true
	case bytes.HasPrefix(data, []byte("BM")) && len(data) >= 26 && bytes.Equal(data[6:10], []byte{0, 0, 0, 0}):
		return BMP, true
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF, true
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WebP, true
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		return Gzip, true
	case bytes.HasPrefix(data, []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}):
		return SevenZip, true
	case len(data) >= 262 && string(data[257:262]) == "ustar":
		return Tar, true
	case bytes.Contains(head, []byte("%PDF-")):
		// some producers prepend junk before the header
		return PDF, true
	}
	return "", false
}

// detectZip tells OOXML, OpenDocument and EPUB containers apart from plain archives
func detectZip(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Zip
	}

	var hasWord, hasXL, hasPPT bool
	for _, f := range zr.File {
		switch {
		case f.Name == "mimetype":
			if m := readMimetypeEntry(f); m != "" {
				return Canonical(m)
			}
		case strings.HasPrefix(f.Name, "word/"):
			hasWord = true
		case strings.HasPrefix(f.Name, "xl/"):
			hasXL = true
		case strings.HasPrefix(f.Name, "ppt/"):
			hasPPT = true
		}
	}

	switch {
	case hasWord:
		return DOCX
	case hasXL:
		return XLSX
	case hasPPT:
		return PPTX
	}
	return Zip
}

func readMimetypeEntry(f *zip.File) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, 256))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// detectText accepts content that is valid UTF-8 without NUL bytes and then
// looks at its leading tokens to pick a more specific text type.
func detectText(data []byte) (string, bool) {
	sample := data
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
		// avoid judging a rune cut in half at the boundary
		for i := 0; i < utf8.UTFMax && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	if bytes.IndexByte(sample, 0) >= 0 || !utf8.Valid(sample) {
		return "", false
	}

	text := strings.TrimPrefix(string(sample), "\ufeff")
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "<!doctype html"), strings.HasPrefix(lower, "<html"):
		return HTML, true
	case strings.HasPrefix(lower, "<?xml"):
		if strings.Contains(lower, "<html") {
			return XHTML, true
		}
		return XML, true
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		if len(data) <= sniffLen && json.Valid(data) {
			return JSON, true
		}
	case strings.HasPrefix(trimmed, "\\documentclass"), strings.Contains(text, "\\begin{document}"):
		return LaTeX, true
	}
	return PlainText, true
}
