package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

const containerPath = "META-INF/container.xml"

// maxEntrySize caps a single decompressed archive member
const maxEntrySize = 64 << 20

// EPUB reads the OPF package document and renders spine chapters in reading order
type EPUB struct {
	registry.Base
}

func NewEPUB() *EPUB {
	return &EPUB{Base: registry.Base{
		ExtractorName:    "epub-extractor",
		ExtractorVersion: Version,
		MimeTypes:        []string{mime.EPUB, "application/x-epub+zip", "application/vnd.epub+zip"},
		Rank:             60,
	}}
}

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Titles       []string `xml:"title"`
		Creators     []string `xml:"creator"`
		Dates        []string `xml:"date"`
		Languages    []string `xml:"language"`
		Identifiers  []string `xml:"identifier"`
		Publishers   []string `xml:"publisher"`
		Subjects     []string `xml:"subject"`
		Descriptions []string `xml:"description"`
		Rights       []string `xml:"rights"`
		Meta         []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func (e *EPUB) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Parsing("failed to open EPUB archive", err)
	}

	var container epubContainer
	if err := readZipXML(archive, containerPath, &container); err != nil {
		return nil, errors.Parsing("invalid EPUB container", err)
	}
	opfPath := ""
	for _, root := range container.Rootfiles {
		if root.FullPath != "" {
			opfPath = root.FullPath
			break
		}
	}
	if opfPath == "" {
		return nil, errors.Parsing("EPUB container names no package document", nil)
	}

	var pkg opfPackage
	if err := readZipXML(archive, opfPath, &pkg); err != nil {
		return nil, errors.Parsing("invalid EPUB package document", err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}

	baseDir := path.Dir(opfPath)
	chapters := make([]string, 0, len(pkg.Spine))
	tables := make([]types.Table, 0)
	for _, ref := range pkg.Spine {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		data, err := readZipEntry(archive, resolveHref(baseDir, href))
		if err != nil {
			continue
		}
		doc, err := parseHTML(data)
		if err != nil {
			continue
		}
		if text := renderHTMLText(doc); text != "" {
			chapters = append(chapters, text)
		}
		tables = append(tables, htmlTables(doc)...)
	}

	result := types.NewResult(strings.Join(chapters, "\n\n"), mimeType)
	result.Tables = tables
	epubMetadata(&pkg, &result.Metadata)
	return result, nil
}

func epubMetadata(pkg *opfPackage, meta *types.Metadata) {
	md := &pkg.Metadata
	meta.SetIfNotEmpty(types.KeyTitle, first(md.Titles))
	if creators := nonEmpty(md.Creators); len(creators) > 0 {
		meta.Set(types.KeyAuthor, creators[0])
		meta.Set(types.KeyAuthors, creators)
	}
	meta.SetIfNotEmpty(types.KeyDate, first(md.Dates))
	meta.SetIfNotEmpty(types.KeyLanguage, first(md.Languages))
	meta.SetIfNotEmpty(types.KeyIdentifier, first(md.Identifiers))
	meta.SetIfNotEmpty(types.KeyPublisher, first(md.Publishers))
	meta.SetIfNotEmpty(types.KeySubject, first(md.Subjects))
	meta.SetIfNotEmpty(types.KeyDescription, first(md.Descriptions))
	meta.SetIfNotEmpty(types.KeyRights, first(md.Rights))
	for _, m := range md.Meta {
		if m.Name == "cover" {
			meta.SetIfNotEmpty("cover", strings.TrimSpace(m.Content))
		}
	}
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// resolveHref resolves a manifest href against the package document directory
func resolveHref(baseDir, href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return strings.TrimPrefix(path.Join(baseDir, href), "/")
}

func findZipEntry(archive *zip.Reader, name string) *zip.File {
	for _, f := range archive.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readZipEntry(archive *zip.Reader, name string) ([]byte, error) {
	f := findZipEntry(archive, name)
	if f == nil {
		return nil, errors.Parsing("archive entry not found: "+name, nil)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntrySize {
		return nil, errors.Parsing("archive entry too large: "+name, nil)
	}
	return data, nil
}

func readZipXML(archive *zip.Reader, name string, v any) error {
	data, err := readZipEntry(archive, name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}
