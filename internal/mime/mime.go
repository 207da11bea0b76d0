// Package mime canonicalizes content-type strings and maps them to and from
// file extensions.
package mime

import (
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

// Canonical MIME types used across the engine
const (
	PDF       = "application/pdf"
	DOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	XLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	PPTX      = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ODT       = "application/vnd.oasis.opendocument.text"
	ODS       = "application/vnd.oasis.opendocument.spreadsheet"
	EPUB      = "application/epub+zip"
	RTF       = "application/rtf"
	LaTeX     = "application/x-latex"
	HTML      = "text/html"
	XHTML     = "application/xhtml+xml"
	PlainText = "text/plain"
	Markdown  = "text/markdown"
	JSON      = "application/json"
	YAML      = "application/x-yaml"
	TOML      = "application/toml"
	XML       = "application/xml"
	CSV       = "text/csv"
	TSV       = "text/tab-separated-values"
	Zip       = "application/zip"
	Tar       = "application/x-tar"
	Gzip      = "application/gzip"
	SevenZip  = "application/x-7z-compressed"
	MSWord    = "application/msword"
	PNG       = "image/png"
	JPEG      = "image/jpeg"
	GIF       = "image/gif"
	BMP       = "image/bmp"
	TIFF      = "image/tiff"
	WebP      = "image/webp"
)

type entry struct {
	ext  string
	mime string
}

// extensionTable is ordered; MimeToExtensions reports extensions in this order.
var extensionTable = []entry{
	{"txt", PlainText},
	{"md", Markdown},
	{"markdown", Markdown},
	{"pdf", PDF},
	{"html", HTML},
	{"htm", HTML},
	{"xhtml", XHTML},
	{"xlsx", XLSX},
	{"xls", "application/vnd.ms-excel"},
	{"xlsm", "application/vnd.ms-excel.sheet.macroenabled.12"},
	{"xlsb", "application/vnd.ms-excel.sheet.binary.macroenabled.12"},
	{"xlam", "application/vnd.ms-excel.addin.macroenabled.12"},
	{"xla", "application/vnd.ms-excel.template.macroenabled.12"},
	{"ods", ODS},
	{"pptx", PPTX},
	{"ppt", "application/vnd.ms-powerpoint"},
	{"docx", DOCX},
	{"doc", MSWord},
	{"odt", ODT},
	{"bmp", BMP},
	{"gif", GIF},
	{"jpg", JPEG},
	{"jpeg", JPEG},
	{"png", PNG},
	{"tiff", TIFF},
	{"tif", TIFF},
	{"webp", WebP},
	{"jp2", "image/jp2"},
	{"jpx", "image/jpx"},
	{"jpm", "image/jpm"},
	{"mj2", "image/mj2"},
	{"pnm", "image/x-portable-anymap"},
	{"pbm", "image/x-portable-bitmap"},
	{"pgm", "image/x-portable-graymap"},
	{"ppm", "image/x-portable-pixmap"},
	{"csv", CSV},
	{"tsv", TSV},
	{"json", JSON},
	{"yaml", YAML},
	{"yml", YAML},
	{"toml", TOML},
	{"xml", XML},
	{"svg", "image/svg+xml"},
	{"eml", "message/rfc822"},
	{"msg", "application/vnd.ms-outlook"},
	{"zip", Zip},
	{"tar", Tar},
	{"gz", Gzip},
	{"tgz", Tar},
	{"7z", SevenZip},
	{"rst", "text/x-rst"},
	{"org", "text/x-org"},
	{"epub", EPUB},
	{"rtf", RTF},
	{"bib", "application/x-bibtex"},
	{"ipynb", "application/x-ipynb+json"},
	{"tex", LaTeX},
	{"latex", LaTeX},
	{"typst", "application/x-typst"},
	{"commonmark", "text/x-commonmark"},
}

// aliases are recognized MIME spellings that share extensions with a canonical type
var aliases = map[string]string{
	"text/rtf":                 RTF,
	"text/x-tex":               LaTeX,
	"application/x-tex":        LaTeX,
	"application/x-epub+zip":   EPUB,
	"application/vnd.epub+zip": EPUB,
	"application/yaml":         YAML,
	"text/yaml":                YAML,
	"text/x-yaml":              YAML,
	"text/xml":                 XML,
	"text/x-markdown":          Markdown,
	"application/x-gzip":       Gzip,
	"image/jpg":                JPEG,
}

var (
	byExtension map[string]string
	byMime      map[string][]string
)

func init() {
	byExtension = make(map[string]string, len(extensionTable))
	byMime = make(map[string][]string)
	for _, e := range extensionTable {
		m := Normalize(e.mime)
		byExtension[e.ext] = m
		byMime[m] = append(byMime[m], e.ext)
	}
}

// Normalize lowercases a content type and drops any parameters after ';'.
// It never fails and Normalize(Normalize(x)) == Normalize(x).
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// ExtensionToMime looks up an extension, with or without its leading dot.
func ExtensionToMime(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	m, ok := byExtension[ext]
	return m, ok
}

// MimeToExtensions returns every known extension for a MIME type
func MimeToExtensions(mimeType string) ([]string, error) {
	m := Normalize(mimeType)
	if canonical, ok := aliases[m]; ok {
		m = canonical
	}
	exts, ok := byMime[m]
	if !ok {
		return nil, errors.UnsupportedFormat(mimeType)
	}
	out := make([]string, len(exts))
	copy(out, exts)
	return out, nil
}

// Canonical resolves known aliases to the canonical spelling used in the table.
// Unknown types are returned normalized.
func Canonical(mimeType string) string {
	m := Normalize(mimeType)
	if canonical, ok := aliases[m]; ok {
		return canonical
	}
	return m
}

// FromPath maps a file path to a MIME type by its extension
func FromPath(path string) (string, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	return ExtensionToMime(ext)
}

// IsKnown reports whether the MIME type (or an alias of it) is in the table
func IsKnown(mimeType string) bool {
	_, ok := byMime[Canonical(mimeType)]
	return ok
}
