package rtf

import (
	"fmt"
	"strings"
)

// buffer collects emitted text, folding whitespace into single spaces
type buffer struct {
	b strings.Builder
}

func (w *buffer) write(s string) {
	w.b.WriteString(s)
}

func (w *buffer) writeRune(r rune) {
	w.b.WriteRune(r)
}

func (w *buffer) space() {
	s := w.b.String()
	if n := len(s); n > 0 && s[n-1] != ' ' && s[n-1] != '\n' {
		w.b.WriteByte(' ')
	}
}

// lineBreak ends the current line unless the buffer is empty or already at a line start
func (w *buffer) lineBreak() {
	s := strings.TrimRight(w.b.String(), " ")
	w.b.Reset()
	w.b.WriteString(s)
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.b.WriteByte('\n')
	}
}

func (w *buffer) String() string {
	return w.b.String()
}

// dateParts accumulates the numeric words of an \info time group
type dateParts struct {
	year, month, day, hour, minute int
}

func (d *dateParts) set(word string, value int) {
	switch word {
	case "yr":
		d.year = value
	case "mo":
		d.month = value
	case "dy":
		d.day = value
	case "hr":
		d.hour = value
	case "min":
		d.minute = value
	}
}

// String renders the date as YYYY-MM-DD, with a time of day when one was given
func (d *dateParts) String() string {
	if d.year == 0 {
		return ""
	}
	month, day := max(d.month, 1), max(d.day, 1)
	if d.hour == 0 && d.minute == 0 {
		return fmt.Sprintf("%04d-%02d-%02d", d.year, month, day)
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", d.year, month, day, d.hour, d.minute)
}
