package latex

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// buffer accumulates emitted text with whitespace collapsing
type buffer struct {
	b []byte
}

func (w *buffer) write(s string) {
	w.b = append(w.b, s...)
}

func (w *buffer) writeRune(r rune) {
	w.b = appendRune(w.b, r)
}

// space writes a single separator unless the buffer is empty or already ends in whitespace
func (w *buffer) space() {
	if n := len(w.b); n > 0 && w.b[n-1] != ' ' && w.b[n-1] != '\n' {
		w.b = append(w.b, ' ')
	}
}

// lineBreak drops trailing spaces and ends the current line
func (w *buffer) lineBreak() {
	w.trimRightSpaces()
	if len(w.b) > 0 {
		w.b = append(w.b, '\n')
	}
}

// paragraph ensures the buffer ends with exactly one blank line
func (w *buffer) paragraph() {
	w.trimRightSpaces()
	if len(w.b) == 0 {
		return
	}
	for !strings.HasSuffix(string(w.b), "\n\n") {
		w.b = append(w.b, '\n')
	}
}

func (w *buffer) trimRightSpaces() {
	for n := len(w.b); n > 0 && (w.b[n-1] == ' ' || w.b[n-1] == '\t'); n = len(w.b) {
		w.b = w.b[:n-1]
	}
}

func (w *buffer) String() string {
	return string(w.b)
}

func appendRune(b []byte, r rune) []byte {
	return append(b, string(r)...)
}

type frameKind int

const (
	kindRoot frameKind = iota
	kindGroup
	kindWrap
	kindHeading
	kindFootnote
	kindLink
	kindBlock
	kindList
	kindTable
)

// braced frames are closed by '}'; the rest by \end{name} or end of input
func (k frameKind) braced() bool {
	switch k {
	case kindGroup, kindWrap, kindHeading, kindFootnote, kindLink:
		return true
	}
	return false
}

// frame is one open group or environment on the explicit stack
type frame struct {
	kind frameKind
	env  string
	buf  buffer

	prefix string
	suffix string
	level  int
	url    string

	list  *listState
	table *tableState
}

// sink returns the buffer that text inside this frame currently goes to.
// A list with no item yet has no sink and its text is dropped.
func (f *frame) sink() *buffer {
	switch f.kind {
	case kindList:
		if n := len(f.list.items); n > 0 {
			return &f.list.items[n-1].buf
		}
		return nil
	case kindTable:
		return &f.table.cell
	default:
		return &f.buf
	}
}

// inline frames render on a single line, so paragraph breaks inside them become spaces
func (f *frame) inline() bool {
	switch f.kind {
	case kindRoot, kindBlock, kindGroup:
		return false
	}
	return true
}

type listStyle int

const (
	styleItemize listStyle = iota
	styleEnumerate
	styleDescription
	styleBibliography
)

type listItem struct {
	marker string
	buf    buffer
}

type listState struct {
	style   listStyle
	counter int
	items   []listItem
}

// addItem starts a new item. label overrides the marker for description
// lists and bibliographies.
func (l *listState) addItem(label string, hasLabel bool) {
	var marker string
	switch l.style {
	case styleEnumerate:
		l.counter++
		marker = strconv.Itoa(l.counter) + ". "
	case styleDescription:
		if hasLabel {
			marker = strings.TrimSpace(label) + ": "
		} else {
			marker = ""
		}
	case styleBibliography:
		marker = "[" + strings.TrimSpace(label) + "] "
	default:
		marker = "- "
	}
	l.items = append(l.items, listItem{marker: marker})
}

func (l *listState) render(indent int) string {
	pad := strings.Repeat("  ", indent)
	var b strings.Builder
	for i := range l.items {
		text := strings.TrimRight(l.items[i].buf.String(), " \t\n")
		text = strings.TrimLeft(text, " \t")
		b.WriteString(pad)
		b.WriteString(l.items[i].marker)
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

type tableState struct {
	rows [][]string
	row  []string
	cell buffer
}

func (t *tableState) endCell() {
	t.row = append(t.row, collapse(t.cell.String()))
	t.cell = buffer{}
}

func (t *tableState) endRow() {
	t.endCell()
	t.rows = append(t.rows, t.row)
	t.row = nil
}

// flush closes a trailing incomplete row. An empty trailing cell after the
// last row separator is not a row.
func (t *tableState) flush() {
	if strings.TrimSpace(t.cell.String()) == "" && len(t.row) == 0 {
		return
	}
	t.endRow()
}

// collapse trims a single-line value, folds internal whitespace and composes accents
func collapse(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
