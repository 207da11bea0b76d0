// Package latex recovers text, metadata and tables from LaTeX sources.
//
// The parser is a single forward pass over the input. Nested groups and
// environments live on an explicit stack bounded by Options.MaxDepth; past the
// bound, further nesting is flattened into the innermost open frame.
package latex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// DefaultMaxDepth is used when Options.MaxDepth is not positive
const DefaultMaxDepth = 256

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

type mode int

const (
	modePreamble mode = iota
	modeBody
	modeAfter
)

type parser struct {
	cur      *cursor
	mode     mode
	stack    []*frame
	maxDepth int

	// nesting past maxDepth, tracked so that closers still pair up
	overflowBraces int
	overflowEnvs   []string
	exceeded       bool

	meta   types.Metadata
	tables []types.Table
	notes  []string
}

// Parse converts LaTeX source into text with lightweight markdown markers.
// Sources without \begin{document} are treated as body fragments.
func Parse(src string, opts Options) *Document {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	p := &parser{
		cur:      newCursor(src),
		stack:    []*frame{{kind: kindRoot}},
		maxDepth: maxDepth,
		meta:     types.NewMetadata(),
		tables:   make([]types.Table, 0),
	}
	if !strings.Contains(src, `\begin{document}`) {
		p.mode = modeBody
	}

	p.run()
	return p.document()
}

func (p *parser) run() {
	for !p.cur.eof() && p.mode != modeAfter {
		r := p.cur.next()
		switch {
		case r == '\\':
			p.command()
		case r == '{':
			p.openBrace(&frame{kind: kindGroup})
		case r == '}':
			p.closeBrace()
		case r == '%':
			p.comment()
		case r == '$':
			p.inlineMath()
		case r == '&':
			p.cellSeparator()
		case r == '~':
			p.text(" ")
		case isSpace(r):
			p.whitespace(r)
		default:
			p.textRune(r)
		}
	}
	p.closeAll()
}

func (p *parser) document() *Document {
	if p.exceeded {
		p.meta.Set("max_depth_exceeded", true)
	}

	text := p.stack[0].buf.String()
	if len(p.notes) > 0 {
		text = strings.TrimRight(text, " \n") + "\n\n" + strings.Join(p.notes, "\n")
	}

	return &Document{
		Text:     finalize(text),
		Metadata: p.meta,
		Tables:   p.tables,
	}
}

// finalize trims line ends, collapses runs of blank lines and composes accents
func finalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(norm.NFC.String(s))
}

// Emission. Nothing is written while in the preamble.

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) sink() *buffer {
	if p.mode != modeBody {
		return nil
	}
	return p.top().sink()
}

func (p *parser) text(s string) {
	if b := p.sink(); b != nil {
		b.write(s)
	}
}

func (p *parser) textRune(r rune) {
	if b := p.sink(); b != nil {
		b.writeRune(r)
	}
}

func (p *parser) space() {
	if b := p.sink(); b != nil {
		b.space()
	}
}

// inlineContext reports whether any open frame renders on a single line
func (p *parser) inlineContext() bool {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].inline() {
			return true
		}
	}
	return false
}

func (p *parser) paragraph() {
	b := p.sink()
	if b == nil {
		return
	}
	if p.inlineContext() {
		b.space()
		return
	}
	b.paragraph()
}

func (p *parser) lineBreak() {
	b := p.sink()
	if b == nil {
		return
	}
	if p.inlineContext() {
		b.space()
		return
	}
	b.lineBreak()
}

// block writes s as its own paragraph, or inline when inside a single-line frame
func (p *parser) block(s string) {
	if s == "" {
		return
	}
	if p.inlineContext() {
		p.space()
		p.text(s)
		p.space()
		return
	}
	p.paragraph()
	p.text(s)
	p.paragraph()
}

func (p *parser) whitespace(first rune) {
	newlines := 0
	if first == '\n' {
		newlines++
	}
	for isSpace(p.cur.peek()) {
		if p.cur.next() == '\n' {
			newlines++
		}
	}
	if newlines >= 2 {
		p.paragraph()
		return
	}
	p.space()
}

// comment drops the rest of the line together with its line ending, so that
// a following empty line still separates paragraphs
func (p *parser) comment() {
	for !p.cur.eof() && p.cur.peek() != '\n' {
		p.cur.next()
	}
	p.cur.accept('\n')
	p.cur.skipInlineSpace()
	if p.cur.peek() == '\n' {
		for isSpace(p.cur.peek()) {
			p.cur.next()
		}
		p.paragraph()
	}
}

func (p *parser) inlineMath() {
	if p.cur.accept('$') {
		p.text("$$" + collapse(p.cur.readMath("$$")) + "$$")
		return
	}
	p.text("$" + collapse(p.cur.readMath("$")) + "$")
}

func (p *parser) cellSeparator() {
	if t := p.top(); t.kind == kindTable {
		t.table.endCell()
		return
	}
	p.textRune('&')
}

// Frame stack.

func (p *parser) push(f *frame) bool {
	if len(p.stack)-1 >= p.maxDepth {
		p.exceeded = true
		return false
	}
	p.stack = append(p.stack, f)
	return true
}

// openBrace pushes a brace-closed frame; the opening brace is already consumed
func (p *parser) openBrace(f *frame) {
	if !p.push(f) {
		p.overflowBraces++
	}
}

// openArgument consumes a '{' and pushes f for the argument it opens
func (p *parser) openArgument(f *frame) bool {
	if !p.cur.accept('{') {
		return false
	}
	p.openBrace(f)
	return true
}

func (p *parser) openEnvironment(f *frame) {
	if !p.push(f) {
		p.overflowEnvs = append(p.overflowEnvs, f.env)
	}
}

func (p *parser) closeBrace() {
	if p.overflowBraces > 0 {
		p.overflowBraces--
		return
	}
	if p.top().kind.braced() {
		p.pop()
	}
}

func (p *parser) closeAll() {
	for len(p.stack) > 1 {
		p.pop()
	}
}

func (p *parser) countLists() int {
	n := 0
	for _, f := range p.stack {
		if f.kind == kindList {
			n++
		}
	}
	return n
}

// innermost returns the index of the closest open frame of the given kind, or -1
func (p *parser) innermost(kind frameKind) int {
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i].kind == kind {
			return i
		}
	}
	return -1
}

// pop closes the top frame and renders it into its parent
func (p *parser) pop() {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]

	switch f.kind {
	case kindGroup:
		p.text(f.buf.String())

	case kindWrap:
		if content := strings.TrimSpace(f.buf.String()); content != "" {
			p.text(f.prefix + content + f.suffix)
		}

	case kindHeading:
		title := collapse(f.buf.String())
		if title == "" {
			return
		}
		p.block(strings.Repeat("#", f.level) + " " + title)

	case kindFootnote:
		if p.mode != modeBody {
			return
		}
		n := len(p.notes) + 1
		p.notes = append(p.notes, fmt.Sprintf("[^%d]: %s", n, collapse(f.buf.String())))
		p.space()
		p.text(fmt.Sprintf("[^%d]", n))

	case kindLink:
		label := collapse(f.buf.String())
		if label == "" {
			label = f.url
		}
		p.text("[" + label + "](" + f.url + ")")

	case kindBlock:
		p.block(strings.Trim(f.buf.String(), " \t\n"))

	case kindList:
		rendered := strings.TrimRight(f.list.render(f.level), "\n")
		if rendered == "" {
			return
		}
		if p.inlineContext() {
			p.text("\n" + rendered)
			return
		}
		p.block(rendered)

	case kindTable:
		f.table.flush()
		if len(f.table.rows) == 0 || p.mode != modeBody {
			return
		}
		table := types.NewTable(f.table.rows, 1)
		p.tables = append(p.tables, table)
		md := strings.TrimRight(table.Markdown, "\n")
		if p.inlineContext() {
			p.text("\n" + md)
			return
		}
		p.block(md)
	}
}

// Commands.

func (p *parser) command() {
	if p.cur.eof() {
		p.textRune('\\')
		return
	}
	if !isLetter(p.cur.peek()) {
		p.controlSymbol(p.cur.next())
		return
	}
	p.controlWord(p.cur.readName())
}

func (p *parser) controlSymbol(r rune) {
	if mark, ok := symbolAccents[r]; ok {
		p.text(applyAccent(accentArgument(p.cur, true), mark, r))
		return
	}

	switch r {
	case '\\':
		p.rowOrLineBreak()
	case '&', '#', '_', '{', '}', '%', '$', '|':
		p.textRune(r)
	case ' ', '\t', '\n', '\r', ',', ';', ':', '>':
		p.space()
	case '!', '/', '@', '-', '*':
	case '(':
		p.text("$" + collapse(p.cur.readMath(`\)`)) + "$")
	case '[':
		p.text("$$" + collapse(p.cur.readMath(`\]`)) + "$$")
	default:
		p.textRune(r)
	}
}

func (p *parser) rowOrLineBreak() {
	p.cur.accept('*')
	if p.cur.peek() == '[' {
		p.cur.readOptional()
	}
	if t := p.top(); t.kind == kindTable {
		t.table.endRow()
		return
	}
	p.lineBreak()
}

func (p *parser) controlWord(name string) {
	base := strings.TrimSuffix(name, "*")

	switch base {
	case "begin":
		p.begin()
		return
	case "end":
		p.end()
		return
	case "item":
		p.item()
		return
	case "bibitem":
		p.bibitem()
		return
	case "title", "author", "date", "documentclass":
		p.metadata(base)
		return
	case "setcounter":
		p.setCounter()
		return
	case "footnote":
		p.cur.readOptional()
		p.openArgument(&frame{kind: kindFootnote})
		return
	case "href":
		p.href()
		return
	case "includegraphics":
		p.cur.readOptional()
		if file, ok := p.cur.readBraced(); ok {
			p.text("[image: " + strings.TrimSpace(file) + "]")
		}
		return
	case "verb":
		p.verb()
		return
	case "newline", "tabularnewline":
		if t := p.top(); t.kind == kindTable && base == "tabularnewline" {
			t.table.endRow()
			return
		}
		p.lineBreak()
		return
	case "par":
		p.paragraph()
		return
	case "rule":
		p.cur.readOptional()
		p.skipMandatory()
		p.skipMandatory()
		p.lineBreak()
		p.text("---")
		p.lineBreak()
		return
	case "def", "gdef", "edef", "xdef":
		p.skipDefinition()
		return
	}

	if level, ok := headingLevels[base]; ok {
		p.cur.readOptional()
		p.openArgument(&frame{kind: kindHeading, level: level})
		return
	}
	if markers, ok := wrappers[base]; ok {
		p.openArgument(&frame{kind: kindWrap, prefix: markers[0], suffix: markers[1]})
		return
	}
	if format, ok := rawFormatters[base]; ok {
		if raw, ok := p.cur.readBraced(); ok {
			p.text(format(unescape(raw)))
		}
		return
	}
	if citeCommands[base] {
		p.cite()
		return
	}
	if mark, ok := letterAccents[base]; ok && p.cur.peek() == '{' {
		p.text(applyAccent(accentArgument(p.cur, false), mark, 0))
		return
	}
	if sym, ok := symbols[base]; ok {
		if p.cur.peek() == '{' && p.cur.peekAt(1) == '}' {
			p.cur.pos += 2
		}
		p.text(sym)
		return
	}
	if pattern, ok := skipped[base]; ok {
		p.skipArguments(pattern)
		return
	}

	// Unknown command: drop an optional argument and let a braced argument,
	// if any, be read as an ordinary group.
	if p.cur.peek() == '[' {
		p.cur.readOptional()
	}
}

func (p *parser) skipArguments(pattern string) {
	for _, a := range pattern {
		switch a {
		case 'o':
			p.cur.readOptional()
		case 'm':
			p.skipMandatory()
		case 'p':
			p.cur.readParens()
		}
	}
}

// skipMandatory drops a braced argument or, failing that, a single control sequence
func (p *parser) skipMandatory() {
	switch r := p.cur.peek(); {
	case r == '{':
		p.cur.readBraced()
	case r == '\\':
		p.cur.next()
		if isLetter(p.cur.peek()) {
			p.cur.readName()
		} else {
			p.cur.next()
		}
	}
}

// skipDefinition drops \def\name<params>{body}
func (p *parser) skipDefinition() {
	p.skipMandatory()
	for !p.cur.eof() && p.cur.peek() != '{' {
		p.cur.next()
	}
	p.cur.readBraced()
}

var andSeparator = regexp.MustCompile(`\\and\b`)

func (p *parser) metadata(name string) {
	switch name {
	case "documentclass":
		opts, hasOpts := p.cur.readOptional()
		class, ok := p.cur.readBraced()
		if !ok {
			return
		}
		p.meta.Set("documentclass", strings.TrimSpace(class))
		if hasOpts {
			p.meta.Set("documentclass_options", strings.TrimSpace(opts))
		}
		return
	}

	p.cur.readOptional()
	raw, ok := p.cur.readBraced()
	if !ok {
		return
	}

	switch name {
	case "title":
		p.meta.Set(types.KeyTitle, plainText(raw))
	case "date":
		p.meta.Set(types.KeyDate, plainText(raw))
	case "author":
		authors := make([]string, 0, 2)
		for _, part := range andSeparator.Split(raw, -1) {
			if a := plainText(part); a != "" {
				authors = append(authors, a)
			}
		}
		if len(authors) == 0 {
			return
		}
		p.meta.Set(types.KeyAuthor, authors[0])
		p.meta.Set(types.KeyAuthors, authors)
	}
}

func (p *parser) href() {
	url, ok := p.cur.readBraced()
	if !ok {
		return
	}
	url = unescape(strings.TrimSpace(url))
	if !p.openArgument(&frame{kind: kindLink, url: url}) {
		p.text(url)
	}
}

func (p *parser) verb() {
	delim := p.cur.peek()
	if delim == 0 || isLetter(delim) || isSpace(delim) || delim == '{' || delim == '[' {
		return
	}
	p.cur.next()
	p.text("`" + p.cur.readUntil(string(delim)) + "`")
}

func (p *parser) cite() {
	first, hasFirst := p.cur.readOptional()
	second, hasSecond := p.cur.readOptional()
	key, ok := p.cur.readBraced()
	if !ok {
		return
	}

	pages := ""
	switch {
	case hasSecond:
		pages = second
	case hasFirst:
		pages = first
	}
	key = strings.TrimSpace(key)
	if pages = strings.TrimSpace(pages); pages != "" {
		p.text("[" + key + ":" + pages + "]")
		return
	}
	p.text("[" + key + "]")
}

// Lists.

func (p *parser) item() {
	i := p.innermost(kindList)
	label, hasLabel := p.cur.readOptional()
	if i < 0 {
		return
	}
	for len(p.stack)-1 > i {
		p.pop()
	}
	p.stack[i].list.addItem(plainText(label), hasLabel)
}

func (p *parser) bibitem() {
	i := p.innermost(kindList)
	label, hasLabel := p.cur.readOptional()
	key, _ := p.cur.readBraced()
	if i < 0 {
		return
	}
	for len(p.stack)-1 > i {
		p.pop()
	}
	if !hasLabel {
		label = key
	}
	p.stack[i].list.addItem(plainText(label), true)
}

func (p *parser) setCounter() {
	counter, _ := p.cur.readBraced()
	value, _ := p.cur.readBraced()

	if !strings.HasPrefix(strings.TrimSpace(counter), "enum") {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return
	}
	for i := len(p.stack) - 1; i > 0; i-- {
		if f := p.stack[i]; f.kind == kindList && f.list.style == styleEnumerate {
			f.list.counter = n
			return
		}
	}
}

var startOption = regexp.MustCompile(`start\s*=\s*(-?\d+)`)

// Environments.

// rawEnvironments keep their body verbatim as a fenced code block
var rawEnvironments = map[string]bool{
	"verbatim":   true,
	"verbatim*":  true,
	"Verbatim":   true,
	"lstlisting": true,
	"minted":     true,
	"obeylines":  true,
	"comment":    true,
}

var mathEnvironments = map[string]bool{
	"equation":    true,
	"align":       true,
	"gather":      true,
	"multline":    true,
	"eqnarray":    true,
	"flalign":     true,
	"alignat":     true,
	"displaymath": true,
	"math":        true,
}

var tableEnvironments = map[string]bool{
	"tabular":   true,
	"tabular*":  true,
	"tabularx":  true,
	"tabulary":  true,
	"longtable": true,
	"array":     true,
}

// envArgs lists arguments that block environments take after \begin{name}
var envArgs = map[string]string{
	"minipage":        "ooom",
	"multicols":       "m",
	"wrapfigure":      "omom",
	"thebibliography": "m",
}

func (p *parser) begin() {
	raw, ok := p.cur.readBraced()
	if !ok {
		return
	}
	name := strings.TrimSpace(raw)
	base := strings.TrimSuffix(name, "*")

	switch {
	case name == "document":
		p.closeAll()
		p.mode = modeBody
	case rawEnvironments[name]:
		p.rawEnvironment(name)
	case mathEnvironments[base]:
		p.mathEnvironment(name, base)
	case tableEnvironments[name]:
		p.tableEnvironment(name)
	case base == "itemize", base == "enumerate", base == "description", base == "thebibliography":
		p.listEnvironment(name, base)
	default:
		if pattern, ok := envArgs[base]; ok {
			p.skipArguments(pattern)
		} else if p.cur.peek() == '[' {
			p.cur.readOptional()
		}
		p.openEnvironment(&frame{kind: kindBlock, env: name})
	}
}

func (p *parser) rawEnvironment(name string) {
	lang := ""
	switch name {
	case "minted":
		p.cur.readOptional()
		lang, _ = p.cur.readBraced()
		lang = strings.TrimSpace(lang)
	case "lstlisting", "Verbatim":
		if opts, ok := p.cur.readOptional(); ok && name == "lstlisting" {
			if m := languageOption.FindStringSubmatch(opts); m != nil {
				lang = strings.ToLower(m[1])
			}
		}
	}

	body := p.cur.readUntil(`\end{` + name + `}`)
	if name == "comment" {
		return
	}
	body = strings.Trim(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	if name == "obeylines" {
		p.block(body)
		return
	}
	p.block("```" + lang + "\n" + body + "\n```")
}

var languageOption = regexp.MustCompile(`language\s*=\s*\{?([A-Za-z0-9+#-]+)`)

func (p *parser) mathEnvironment(name, base string) {
	if base == "alignat" {
		p.cur.readBraced()
	}
	body := collapse(p.cur.readUntil(`\end{` + name + `}`))
	if body == "" {
		return
	}
	if base == "math" {
		p.text("$" + body + "$")
		return
	}
	p.space()
	p.text("$$" + body + "$$")
	p.space()
}

func (p *parser) tableEnvironment(name string) {
	switch name {
	case "tabular*", "tabularx", "tabulary":
		p.cur.readBraced()
	}
	p.cur.readOptional()
	p.cur.readBraced()
	p.openEnvironment(&frame{kind: kindTable, env: name, table: &tableState{}})
}

func (p *parser) listEnvironment(name, base string) {
	list := &listState{}
	switch base {
	case "enumerate":
		list.style = styleEnumerate
		if opts, ok := p.cur.readOptional(); ok {
			if m := startOption.FindStringSubmatch(opts); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					list.counter = n - 1
				}
			}
		}
	case "description":
		list.style = styleDescription
	case "thebibliography":
		list.style = styleBibliography
		p.skipArguments(envArgs[base])
	default:
		p.cur.readOptional()
	}
	p.openEnvironment(&frame{kind: kindList, env: name, list: list, level: p.countLists()})
}

func (p *parser) end() {
	raw, ok := p.cur.readBraced()
	if !ok {
		return
	}
	name := strings.TrimSpace(raw)

	if name == "document" {
		p.closeAll()
		p.mode = modeAfter
		return
	}
	if n := len(p.overflowEnvs); n > 0 && p.overflowEnvs[n-1] == name {
		p.overflowEnvs = p.overflowEnvs[:n-1]
		return
	}

	for i := len(p.stack) - 1; i > 0; i-- {
		f := p.stack[i]
		if f.kind.braced() || f.env != name {
			continue
		}
		for len(p.stack) > i {
			p.pop()
		}
		return
	}
}
