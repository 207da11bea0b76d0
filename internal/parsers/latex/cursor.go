package latex

import (
	"strings"
	"unicode"
)

// cursor walks the source one rune at a time with lookahead
type cursor struct {
	src []rune
	pos int
}

func newCursor(src string) *cursor {
	return &cursor{src: []rune(src)}
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.src)
}

// peek returns the current rune without consuming it, or 0 at end of input
func (c *cursor) peek() rune {
	if c.pos >= len(c.src) {
		return 0
	}
	return c.src[c.pos]
}

// peekAt looks n runes ahead of the current one
func (c *cursor) peekAt(n int) rune {
	if c.pos+n >= len(c.src) {
		return 0
	}
	return c.src[c.pos+n]
}

func (c *cursor) next() rune {
	if c.pos >= len(c.src) {
		return 0
	}
	r := c.src[c.pos]
	c.pos++
	return r
}

// accept consumes r if it is the current rune
func (c *cursor) accept(r rune) bool {
	if c.peek() == r && !c.eof() {
		c.pos++
		return true
	}
	return false
}

// hasPrefix reports whether the remaining input starts with s
func (c *cursor) hasPrefix(s string) bool {
	i := c.pos
	for _, r := range s {
		if i >= len(c.src) || c.src[i] != r {
			return false
		}
		i++
	}
	return true
}

// readName reads a control word: letters optionally followed by one '*'
func (c *cursor) readName() string {
	start := c.pos
	for !c.eof() && isLetter(c.peek()) {
		c.pos++
	}
	if c.pos > start && c.peek() == '*' {
		c.pos++
	}
	return string(c.src[start:c.pos])
}

// readBraced consumes a balanced {...} group and returns its raw contents.
// The opening brace must be the current rune. Escaped braces do not count.
func (c *cursor) readBraced() (string, bool) {
	if !c.accept('{') {
		return "", false
	}
	var b strings.Builder
	depth := 1
	for !c.eof() {
		r := c.next()
		switch r {
		case '\\':
			b.WriteRune(r)
			if !c.eof() {
				b.WriteRune(c.next())
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b.String(), true
			}
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// readOptional consumes a [...] argument, honoring nested braces
func (c *cursor) readOptional() (string, bool) {
	if !c.accept('[') {
		return "", false
	}
	var b strings.Builder
	braces := 0
	for !c.eof() {
		r := c.next()
		switch {
		case r == '{':
			braces++
		case r == '}':
			braces--
		case r == ']' && braces <= 0:
			return b.String(), true
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// readParens consumes a (...) argument such as the trim range of \cmidrule
func (c *cursor) readParens() bool {
	if !c.accept('(') {
		return false
	}
	for !c.eof() && c.next() != ')' {
	}
	return true
}

// readUntil consumes input up to and including the terminator and returns
// what came before it. Without a terminator the rest of the input is returned.
func (c *cursor) readUntil(term string) string {
	t := []rune(term)
	start := c.pos
	for i := c.pos; i+len(t) <= len(c.src); i++ {
		if matchAt(c.src, i, t) {
			c.pos = i + len(t)
			return string(c.src[start:i])
		}
	}
	c.pos = len(c.src)
	return string(c.src[start:])
}

// readMath consumes math up to the closing delimiter, skipping escaped characters
func (c *cursor) readMath(closing string) string {
	var b strings.Builder
	for !c.eof() {
		if c.hasPrefix(closing) {
			c.pos += len([]rune(closing))
			break
		}
		r := c.next()
		b.WriteRune(r)
		if r == '\\' && !c.eof() {
			b.WriteRune(c.next())
		}
	}
	return b.String()
}

// skipInlineSpace skips spaces and tabs but not line breaks
func (c *cursor) skipInlineSpace() {
	for c.peek() == ' ' || c.peek() == '\t' {
		c.pos++
	}
}

func matchAt(src []rune, i int, t []rune) bool {
	for j := range t {
		if src[i+j] != t[j] {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r) || r == '@'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
