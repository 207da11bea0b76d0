package extractors

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// kerningGap is the TJ adjustment, in thousandths of an em, treated as a word break
const kerningGap = -200

// streamText recovers the text shown by a page content stream. It follows the
// text-showing operators (Tj, TJ, ' and ") and turns line moves into newlines.
func streamText(data []byte) string {
	s := &streamScanner{data: data}
	var out strings.Builder

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString:
			s.pending = append(s.pending, tok.text)
		case tokNumber:
			if s.depth > 0 && tok.num <= kerningGap && len(s.pending) > 0 {
				s.pending = append(s.pending, " ")
			}
			s.numbers = append(s.numbers, tok.num)
		case tokArrayOpen:
			s.depth++
		case tokArrayClose:
			if s.depth > 0 {
				s.depth--
			}
		case tokOperator:
			s.operator(tok.text, &out)
		}
	}
	return cleanStreamText(out.String())
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokArrayOpen
	tokArrayClose
	tokOperator
	tokOther
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type streamScanner struct {
	data []byte
	pos  int

	depth   int
	pending []string
	numbers []float64
}

func (s *streamScanner) operator(op string, out *strings.Builder) {
	switch op {
	case "Tj", "TJ":
		out.WriteString(strings.Join(s.pending, ""))
	case "'", `"`:
		out.WriteByte('\n')
		out.WriteString(strings.Join(s.pending, ""))
	case "Td", "TD":
		if n := len(s.numbers); n >= 1 && s.numbers[n-1] != 0 {
			out.WriteByte('\n')
		} else {
			out.WriteByte(' ')
		}
	case "T*", "ET":
		out.WriteByte('\n')
	case "Tm":
		out.WriteByte(' ')
	case "BI":
		s.skipInlineImage()
	}
	s.pending = s.pending[:0]
	s.numbers = s.numbers[:0]
}

func (s *streamScanner) next() (token, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return token{kind: tokString, text: decodePDFText(s.readLiteral())}, true
		case c == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOther}, true
			}
			s.pos++
			return token{kind: tokString, text: decodePDFText(s.readHex())}, true
		case c == '>':
			s.pos++
			if s.pos < len(s.data) && s.data[s.pos] == '>' {
				s.pos++
			}
			return token{kind: tokOther}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayOpen}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayClose}, true
		case c == '/':
			s.pos++
			s.readRegular()
			return token{kind: tokOther}, true
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			word := s.readRegular()
			n, err := strconv.ParseFloat(word, 64)
			if err != nil {
				return token{kind: tokOther}, true
			}
			return token{kind: tokNumber, num: n}, true
		case c == '{' || c == '}' || c == ')':
			s.pos++
		default:
			word := s.readRegular()
			if word == "" {
				s.pos++
				continue
			}
			return token{kind: tokOperator, text: word}, true
		}
	}
	return token{}, false
}

// readRegular reads a run of regular characters
func (s *streamScanner) readRegular() string {
	start := s.pos
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// readLiteral reads a (...) string body with balanced parentheses and escapes
func (s *streamScanner) readLiteral() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\r', '\n':
				if e == '\r' && s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// readHex reads a <...> string body
func (s *streamScanner) readHex() []byte {
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, _ := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage advances past the image data that follows BI
func (s *streamScanner) skipInlineImage() {
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' &&
			(s.pos == 0 || isPDFSpace(s.data[s.pos-1])) &&
			(s.pos+2 >= len(s.data) || isPDFSpace(s.data[s.pos+2])) {
			s.pos += 2
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}

// decodePDFText decodes UTF-16BE strings marked by a byte order mark and
// treats everything else as single-byte Latin text
func decodePDFText(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff {
		units := make([]uint16, 0, len(raw)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(units))
	}
	var b strings.Builder
	for _, c := range raw {
		b.WriteRune(charmap.ISO8859_1.DecodeByte(c))
	}
	return b.String()
}

// cleanStreamText drops unprintable runes, folds spaces and removes blank lines
func cleanStreamText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			if !unicode.IsPrint(r) {
				return -1
			}
			return r
		}, line)
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
