// Package rtf recovers text, metadata and tables from Rich Text Format documents.
package rtf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// DefaultMaxDepth is used when Options.MaxDepth is not positive
const DefaultMaxDepth = 256

// maxWordLen bounds control word names; longer runs are treated as text
const maxWordLen = 32

// Options configures a parse
type Options struct {
	MaxDepth int
}

// Document is the outcome of a parse. Parsing never fails.
type Document struct {
	Text     string
	Metadata types.Metadata
	Tables   []types.Table
}

type destination int

const (
	destText destination = iota
	destSkip
	destInfo
	destField
	destDate
	destFootnote
)

// group is the state saved by '{' and restored by '}'
type group struct {
	dest destination
	// key names the metadata field for destField and destDate groups
	key string
	// uc is the number of fallback characters that follow a \u escape
	uc int
	// owner marks the group that opened its destination
	owner bool
}

type parser struct {
	src []byte
	pos int

	stack    []group
	maxDepth int
	overflow int
	exceeded bool

	// pending fallback characters to drop after a \u escape
	skip int
	// high surrogate waiting for its pair
	surrogate rune

	body  buffer
	field buffer
	note  buffer
	notes []string
	date  dateParts

	inTable bool
	row     []string
	rows    [][]string
	cell    buffer

	meta   types.Metadata
	tables []types.Table
}

// Parse extracts text from RTF source. Unknown control words are skipped and
// literal text around them is kept.
func Parse(src []byte, opts Options) *Document {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	p := &parser{
		src:      src,
		stack:    []group{{uc: 1}},
		maxDepth: maxDepth,
		meta:     types.NewMetadata(),
		tables:   make([]types.Table, 0),
	}
	p.run()
	return p.document()
}

func (p *parser) run() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '\\':
			p.control()
		case '{':
			p.open()
		case '}':
			p.close()
		case '\r', '\n', ' ', '\t':
			p.whitespace()
		default:
			p.literal(c)
		}
	}
	p.flushTable()
}

func (p *parser) document() *Document {
	if p.exceeded {
		p.meta.Set("max_depth_exceeded", true)
	}

	text := strings.TrimSpace(p.body.String())
	if len(p.notes) > 0 {
		text += "\n\n" + strings.Join(p.notes, "\n")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return &Document{
		Text:     strings.TrimSpace(strings.Join(lines, "\n")),
		Metadata: p.meta,
		Tables:   p.tables,
	}
}

func (p *parser) current() *group {
	return &p.stack[len(p.stack)-1]
}

// Groups.

func (p *parser) open() {
	if len(p.stack) > p.maxDepth {
		p.overflow++
		p.exceeded = true
		return
	}
	g := *p.current()
	g.owner = false
	p.stack = append(p.stack, g)
}

func (p *parser) close() {
	if p.overflow > 0 {
		p.overflow--
		return
	}
	if len(p.stack) == 1 {
		return
	}
	g := *p.current()
	p.stack = p.stack[:len(p.stack)-1]
	p.skip = 0
	if g.owner {
		p.finishDestination(g)
	}
}

// enter switches the current group to a new destination
func (p *parser) enter(dest destination, key string) {
	g := p.current()
	if g.dest == destSkip {
		return
	}
	g.dest = dest
	g.key = key
	g.owner = true

	switch dest {
	case destField:
		p.field = buffer{}
	case destDate:
		p.date = dateParts{}
	case destFootnote:
		p.note = buffer{}
	}
}

func (p *parser) finishDestination(g group) {
	switch g.dest {
	case destField:
		value := collapse(p.field.String())
		if value == "" {
			return
		}
		p.meta.Set(g.key, value)
		if g.key == types.KeyAuthor {
			p.meta.Set(types.KeyAuthors, []string{value})
		}
	case destDate:
		if s := p.date.String(); s != "" {
			p.meta.Set(g.key, s)
		}
	case destFootnote:
		text := collapse(p.note.String())
		if text == "" {
			return
		}
		n := len(p.notes) + 1
		p.notes = append(p.notes, fmt.Sprintf("[^%d]: %s", n, text))
		out := p.output()
		if out == nil {
			return
		}
		out.space()
		out.write(fmt.Sprintf("[^%d]", n))
	}
}

// Emission.

// output returns the buffer text currently goes to, or nil when it is dropped.
// Body text outside a table closes any pending table first.
func (p *parser) output() *buffer {
	if p.current().dest == destText && !p.inTable {
		p.flushTable()
	}
	return p.target()
}

func (p *parser) target() *buffer {
	switch p.current().dest {
	case destText:
		if p.inTable {
			return &p.cell
		}
		return &p.body
	case destField:
		return &p.field
	case destFootnote:
		return &p.note
	}
	return nil
}

func (p *parser) emit(s string) {
	if p.skip > 0 {
		p.skip--
		return
	}
	if out := p.output(); out != nil {
		out.write(s)
	}
}

// space separates words without closing a pending table, since whitespace
// commonly sits between \row and the next \trowd
func (p *parser) space() {
	if out := p.target(); out != nil {
		out.space()
	}
}

func (p *parser) whitespace() {
	p.skip = 0
	p.space()
}

// literal writes a text byte. Raw bytes above ASCII are taken as UTF-8 when
// they form a valid sequence and as ISO-8859-1 otherwise.
func (p *parser) literal(c byte) {
	if c < utf8.RuneSelf {
		p.emit(string(rune(c)))
		return
	}
	r, size := utf8.DecodeRune(p.src[p.pos-1:])
	if r != utf8.RuneError || size > 1 {
		p.pos += size - 1
		p.emit(string(r))
		return
	}
	p.emit(string(charmap.ISO8859_1.DecodeByte(c)))
}

// Tables.

func (p *parser) endCell() {
	p.row = append(p.row, collapse(p.cell.String()))
	p.cell = buffer{}
}

func (p *parser) endRow() {
	if strings.TrimSpace(p.cell.String()) != "" {
		p.endCell()
	}
	if len(p.row) > 0 {
		p.rows = append(p.rows, p.row)
	}
	p.row = nil
}

// flushTable closes the pending table and writes it into the body
func (p *parser) flushTable() {
	if len(p.row) > 0 || strings.TrimSpace(p.cell.String()) != "" {
		p.endRow()
	}
	if len(p.rows) == 0 {
		return
	}
	table := types.NewTable(p.rows, 1)
	p.tables = append(p.tables, table)
	p.rows = nil

	p.body.lineBreak()
	p.body.write(table.Markdown)
}

// Control words and symbols.

func (p *parser) control() {
	if p.pos >= len(p.src) {
		return
	}
	c := p.src[p.pos]
	if !isLetter(c) {
		p.pos++
		p.symbol(c)
		return
	}

	name := p.readName()
	param, hasParam := p.readParam()
	if p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	p.word(name, param, hasParam)
}

func (p *parser) readName() string {
	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) && p.pos-start < maxWordLen {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) readParam() (int, bool) {
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	digits := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) && p.pos-digits < 10 {
		p.pos++
	}
	if p.pos == digits {
		p.pos = start
		return 0, false
	}
	n, err := strconv.Atoi(string(p.src[start:p.pos]))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *parser) symbol(c byte) {
	switch c {
	case '\\', '{', '}':
		p.emit(string(rune(c)))
	case '\'':
		p.hexEscape()
	case '~':
		p.emit(" ")
	case '_':
		p.emit("-")
	case '-', ':', '|':
	case '*':
		p.enter(destSkip, "")
	case '\n', '\r', '\t':
		p.space()
	default:
		p.emit(string(rune(c)))
	}
}

// hexEscape decodes \'hh as a single ISO-8859-1 byte
func (p *parser) hexEscape() {
	if p.pos+2 > len(p.src) {
		p.pos = len(p.src)
		return
	}
	hex := string(p.src[p.pos : p.pos+2])
	p.pos += 2
	b, err := strconv.ParseUint(hex, 16, 8)
	if err != nil {
		return
	}
	p.emit(string(charmap.ISO8859_1.DecodeByte(byte(b))))
}

func (p *parser) word(name string, param int, hasParam bool) {
	switch name {
	case "u":
		if hasParam {
			p.unicode(param)
		}
		return
	case "uc":
		if hasParam && param >= 0 {
			p.current().uc = param
		}
		return
	case "bin":
		if hasParam && param > 0 {
			p.pos = min(p.pos+param, len(p.src))
		}
		return
	case "ansicpg":
		if hasParam {
			p.meta.Set("code_page", param)
		}
		return
	case "info":
		p.enter(destInfo, "")
		return
	case "footnote":
		p.enter(destFootnote, "")
		return
	case "trowd", "intbl", "pard", "cell", "nestcell", "row", "nestrow":
		if p.current().dest == destText {
			p.tableWord(name)
		}
		return
	}

	if p.current().dest == destInfo {
		if key, ok := infoFields[name]; ok {
			p.enter(destField, key)
			return
		}
		if key, ok := infoDates[name]; ok {
			p.enter(destDate, key)
		}
		return
	}
	if p.current().dest == destDate {
		p.date.set(name, param)
		return
	}
	if skippedDestinations[name] {
		p.enter(destSkip, "")
		return
	}
	if s, ok := specialChars[name]; ok {
		p.emit(s)
		return
	}
	if breaks[name] {
		p.skip = 0
		p.space()
	}
}

func (p *parser) tableWord(name string) {
	switch name {
	case "trowd", "intbl":
		p.inTable = true
	case "pard":
		p.inTable = false
	case "cell", "nestcell":
		if p.inTable {
			p.endCell()
		}
	case "row", "nestrow":
		p.endRow()
	}
}

// unicode writes the code point of a \uN escape, combining surrogate pairs,
// and arms skipping of the fallback characters that follow it
func (p *parser) unicode(n int) {
	if n < 0 {
		n += 65536
	}
	r := rune(n)
	p.skip = 0

	switch {
	case utf16.IsSurrogate(r) && r < 0xdc00:
		p.surrogate = r
	case utf16.IsSurrogate(r):
		if p.surrogate != 0 {
			if out := p.output(); out != nil {
				out.writeRune(utf16.DecodeRune(p.surrogate, r))
			}
		}
		p.surrogate = 0
	case utf8.ValidRune(r):
		p.surrogate = 0
		if out := p.output(); out != nil {
			out.writeRune(r)
		}
	}
	p.skip = p.current().uc
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
