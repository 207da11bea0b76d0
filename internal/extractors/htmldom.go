package extractors

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/mcp-doc-extract/internal/types"
)

var hiddenStyle = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

func parseHTML(content []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(content))
}

// invisible reports elements whose content never renders
func invisible(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Nav:
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			for _, re := range hiddenStyle {
				if re.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// htmlMetadata reads the document title, <meta> description/author/keywords and the root language
func htmlMetadata(doc *html.Node) types.Metadata {
	meta := types.NewMetadata()

	if title := findFirst(doc, atom.Title); title != nil {
		meta.SetIfNotEmpty(types.KeyTitle, inlineText(title))
	}
	if root := findFirst(doc, atom.Html); root != nil {
		meta.SetIfNotEmpty(types.KeyLanguage, strings.TrimSpace(attr(root, "lang")))
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			value := strings.TrimSpace(attr(n, "content"))
			switch strings.ToLower(attr(n, "name")) {
			case "description":
				meta.SetIfNotEmpty(types.KeyDescription, value)
			case "author":
				if value != "" {
					meta.Set(types.KeyAuthor, value)
					meta.Set(types.KeyAuthors, []string{value})
				}
			case "keywords":
				meta.SetIfNotEmpty("keywords", value)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return meta
}

// htmlTables captures every <table> as a cell matrix. Nested tables are
// flattened into the text of their enclosing cell.
func htmlTables(doc *html.Node) []types.Table {
	tables := make([]types.Table, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if invisible(n) {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			if cells := tableCells(n); len(cells) > 0 {
				tables = append(tables, types.NewTable(cells, 1))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables
}

func tableCells(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Tr:
				var row []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
						row = append(row, inlineText(c))
					}
				}
				if len(row) > 0 {
					rows = append(rows, row)
				}
				return
			case atom.Table:
				if n != table {
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

// inlineText joins the visible text below n on a single line
func inlineText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if invisible(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// textWriter folds whitespace and tracks line and paragraph boundaries
type textWriter struct {
	b strings.Builder
}

func (w *textWriter) last() byte {
	s := w.b.String()
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func (w *textWriter) text(s string) {
	if startsWithSpace(s) {
		w.space()
	}
	for i, field := range strings.Fields(s) {
		if i > 0 {
			w.space()
		}
		w.b.WriteString(field)
	}
	if endsWithSpace(s) {
		w.space()
	}
}

func (w *textWriter) space() {
	if c := w.last(); c != 0 && c != ' ' && c != '\n' {
		w.b.WriteByte(' ')
	}
}

func (w *textWriter) lineBreak() {
	w.trim()
	if w.b.Len() > 0 && w.last() != '\n' {
		w.b.WriteByte('\n')
	}
}

func (w *textWriter) paragraph() {
	w.trim()
	if w.b.Len() == 0 {
		return
	}
	for !strings.HasSuffix(w.b.String(), "\n\n") {
		w.b.WriteByte('\n')
	}
}

func (w *textWriter) trim() {
	s := strings.TrimRight(w.b.String(), " ")
	w.b.Reset()
	w.b.WriteString(s)
}

func (w *textWriter) String() string {
	return strings.TrimSpace(w.b.String())
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n\f") != s
}

// renderHTMLText converts a DOM into plain text with markdown-style headings,
// list markers and pipe tables
func renderHTMLText(doc *html.Node) string {
	w := &textWriter{}
	renderNode(w, doc)
	return w.String()
}

func renderNode(w *textWriter, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		renderChildren(w, n)
		return
	}
	if invisible(n) {
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		if text := inlineText(n); text != "" {
			w.paragraph()
			w.b.WriteString(strings.Repeat("#", int(n.Data[1]-'0')) + " " + text)
			w.paragraph()
		}
	case atom.Br:
		w.lineBreak()
	case atom.Hr:
		w.paragraph()
		w.b.WriteString("---")
		w.paragraph()
	case atom.Img:
		if alt := strings.TrimSpace(attr(n, "alt")); alt != "" {
			w.space()
			w.b.WriteString("[image: " + alt + "]")
		}
	case atom.Table:
		if cells := tableCells(n); len(cells) > 0 {
			w.paragraph()
			w.b.WriteString(strings.TrimRight(types.RenderMarkdown(cells), "\n"))
			w.paragraph()
		}
	case atom.Ul, atom.Ol:
		w.paragraph()
		renderList(w, n)
		w.paragraph()
	case atom.Pre:
		w.paragraph()
		w.b.WriteString(strings.Trim(rawText(n), "\n"))
		w.paragraph()
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Blockquote, atom.Header, atom.Footer,
		atom.Main, atom.Aside, atom.Figure, atom.Figcaption, atom.Dl, atom.Address, atom.Body:
		w.paragraph()
		renderChildren(w, n)
		w.paragraph()
	case atom.Dt, atom.Dd, atom.Tr, atom.Caption:
		w.lineBreak()
		renderChildren(w, n)
		w.lineBreak()
	case atom.Td, atom.Th:
		w.space()
		renderChildren(w, n)
		w.space()
	default:
		renderChildren(w, n)
	}
}

func renderChildren(w *textWriter, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(w, c)
	}
}

func renderList(w *textWriter, list *html.Node) {
	ordered := list.DataAtom == atom.Ol
	counter := 1
	if start, err := strconv.Atoi(attr(list, "start")); err == nil && ordered {
		counter = start
	}
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li || invisible(c) {
			continue
		}
		w.lineBreak()
		if ordered {
			w.b.WriteString(strconv.Itoa(counter) + ". ")
			counter++
		} else {
			w.b.WriteString("- ")
		}
		w.b.WriteString(inlineText(c))
		w.lineBreak()
	}
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
