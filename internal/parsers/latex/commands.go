package latex

import (
	"strings"
	"unicode"
)

var headingLevels = map[string]int{
	"part":          1,
	"chapter":       1,
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
	"paragraph":     4,
	"subparagraph":  5,
}

// wrappers re-process their argument and surround it with markers
var wrappers = map[string][2]string{
	"emph":   {"*", "*"},
	"textit": {"*", "*"},
	"textsl": {"*", "*"},
	"textbf": {"**", "**"},
	"sout":   {"~~", "~~"},
	"st":     {"~~", "~~"},
}

// rawFormatters take their argument verbatim
var rawFormatters = map[string]func(string) string{
	"texttt":          func(s string) string { return "`" + s + "`" },
	"textsuperscript": func(s string) string { return "^" + s },
	"textsubscript":   func(s string) string { return "_" + s },
	"ensuremath":      func(s string) string { return "$" + s + "$" },
	"url":             func(s string) string { return s },
	"nolinkurl":       func(s string) string { return s },
	"path":            func(s string) string { return s },
	"ref":             func(s string) string { return s },
	"pageref":         func(s string) string { return s },
	"autoref":         func(s string) string { return s },
	"cref":            func(s string) string { return s },
	"Cref":            func(s string) string { return s },
	"eqref":           func(s string) string { return "(" + s + ")" },
}

var citeCommands = map[string]bool{
	"cite":      true,
	"citep":     true,
	"citet":     true,
	"parencite": true,
	"textcite":  true,
	"autocite":  true,
	"footcite":  true,
}

// symbols expand to fixed text; a following empty {} is swallowed
var symbols = map[string]string{
	"ldots":           "...",
	"dots":            "...",
	"textellipsis":    "...",
	"textless":        "<",
	"textgreater":     ">",
	"textbackslash":   "\\",
	"textasciitilde":  "~",
	"textasciicircum": "^",
	"textunderscore":  "_",
	"textbar":         "|",
	"textbullet":      "•",
	"textendash":      "–",
	"textemdash":      "—",
	"textdegree":      "°",
	"textregistered":  "®",
	"texttrademark":   "™",
	"textcopyright":   "©",
	"copyright":       "©",
	"pounds":          "£",
	"euro":            "€",
	"S":               "§",
	"P":               "¶",
	"dag":             "†",
	"ddag":            "‡",
	"ss":              "ß",
	"o":               "ø",
	"O":               "Ø",
	"ae":              "æ",
	"AE":              "Æ",
	"oe":              "œ",
	"OE":              "Œ",
	"aa":              "å",
	"AA":              "Å",
	"l":               "ł",
	"L":               "Ł",
	"i":               "i",
	"j":               "j",
	"LaTeX":           "LaTeX",
	"TeX":             "TeX",
	"quad":            " ",
	"qquad":           " ",
	"enspace":         " ",
	"and":             ", ",
}

// symbolAccents follow a backslash directly: \'e, \"{o}
var symbolAccents = map[rune]rune{
	'\'': '\u0301',
	'`':  '\u0300',
	'^':  '\u0302',
	'"':  '\u0308',
	'~':  '\u0303',
	'=':  '\u0304',
	'.':  '\u0307',
}

// letterAccents are control words and only act when followed by a braced argument
var letterAccents = map[string]rune{
	"c": '\u0327',
	"v": '\u030c',
	"u": '\u0306',
	"H": '\u030b',
	"r": '\u030a',
	"k": '\u0328',
	"d": '\u0323',
	"b": '\u0331',
}

// skipped commands consume their arguments and emit nothing.
// Pattern letters: o optional [..], m mandatory {..}, p parenthesized (..).
var skipped = map[string]string{
	"label":             "m",
	"usepackage":        "om",
	"RequirePackage":    "om",
	"vspace":            "m",
	"hspace":            "m",
	"setlength":         "mm",
	"addtolength":       "mm",
	"settowidth":        "mm",
	"newlength":         "m",
	"pagestyle":         "m",
	"thispagestyle":     "m",
	"pagenumbering":     "m",
	"bibliographystyle": "m",
	"bibliography":      "m",
	"addbibresource":    "om",
	"newcommand":        "moom",
	"renewcommand":      "moom",
	"providecommand":    "moom",
	"newenvironment":    "moomm",
	"renewenvironment":  "moomm",
	"newtheorem":        "momo",
	"addtocounter":      "mm",
	"stepcounter":       "m",
	"refstepcounter":    "m",
	"input":             "m",
	"include":           "m",
	"includeonly":       "m",
	"graphicspath":      "m",
	"geometry":          "m",
	"hypersetup":        "m",
	"definecolor":       "mmm",
	"color":             "om",
	"cline":             "m",
	"cmidrule":          "pm",
	"fontsize":          "mm",
	"linespread":        "m",
	"index":             "m",
	"glossary":          "m",
	"nocite":            "m",
	"hyphenation":       "m",
	"captionsetup":      "om",
	"lstset":            "m",
	"setminted":         "om",
	"usetikzlibrary":    "m",
	"let":               "mm",
	"linebreak":         "o",
	"pagebreak":         "o",
	"nopagebreak":       "o",
	"enlargethispage":   "m",
	"textcolor":         "om",
	"colorbox":          "om",
	"fcolorbox":         "mm",
	"multicolumn":       "mm",
	"multirow":          "mm",
	"thanks":            "m",
	"maketitle":         "",
	"tableofcontents":   "",
	"listoffigures":     "",
	"listoftables":      "",
	"printbibliography": "o",
	"newpage":           "",
	"clearpage":         "",
	"cleardoublepage":   "",
	"noindent":          "",
	"indent":            "",
	"centering":         "",
	"raggedright":       "",
	"raggedleft":        "",
	"hline":             "",
	"toprule":           "o",
	"midrule":           "o",
	"bottomrule":        "o",
	"hrule":             "",
	"smallskip":         "",
	"medskip":           "",
	"bigskip":           "",
	"hfill":             "",
	"vfill":             "",
	"small":             "",
	"large":             "",
	"Large":             "",
	"LARGE":             "",
	"huge":              "",
	"Huge":              "",
	"normalsize":        "",
	"footnotesize":      "",
	"scriptsize":        "",
	"tiny":              "",
	"bfseries":          "",
	"itshape":           "",
	"ttfamily":          "",
	"rmfamily":          "",
	"sffamily":          "",
	"mdseries":          "",
	"upshape":           "",
	"scshape":           "",
	"slshape":           "",
	"em":                "",
	"bf":                "",
	"it":                "",
	"tt":                "",
	"rm":                "",
	"sf":                "",
	"sc":                "",
	"selectfont":        "",
	"appendix":          "",
	"frontmatter":       "",
	"mainmatter":        "",
	"backmatter":        "",
	"protect":           "",
	"relax":             "",
	"doublespacing":     "",
	"singlespacing":     "",
	"onehalfspacing":    "",
	"VerbatimFootnotes": "",
	"makeatletter":      "",
	"makeatother":       "",
	"null":              "",
	"nobreak":           "",
	"allowbreak":        "",
	"today":             "",

	"DeclareMathOperator": "mm",
}

// droppedInMetadata commands vanish together with their argument when
// cleaning metadata values
var droppedInMetadata = map[string]bool{
	"thanks":   true,
	"footnote": true,
	"label":    true,
	"protect":  true,
}

// plainText reduces a raw LaTeX fragment to plain text: commands are removed,
// escapes and accents resolved, and whitespace collapsed.
func plainText(raw string) string {
	c := newCursor(raw)
	var b strings.Builder
	for !c.eof() {
		r := c.next()
		switch {
		case r == '\\':
			if c.eof() {
				continue
			}
			if !isLetter(c.peek()) {
				s := c.next()
				if mark, ok := symbolAccents[s]; ok {
					b.WriteString(applyAccent(accentArgument(c, true), mark, s))
					continue
				}
				switch s {
				case '\\', ' ', ',', ';':
					b.WriteByte(' ')
				case '&', '#', '_', '{', '}', '%', '$':
					b.WriteRune(s)
				}
				continue
			}
			name := strings.TrimSuffix(c.readName(), "*")
			if droppedInMetadata[name] {
				c.readOptional()
				c.readBraced()
				continue
			}
			if mark, ok := letterAccents[name]; ok && c.peek() == '{' {
				b.WriteString(applyAccent(accentArgument(c, false), mark, 0))
				continue
			}
			if sym, ok := symbols[name]; ok && name != "and" {
				b.WriteString(sym)
			}
		case r == '{' || r == '}':
		case r == '~':
			b.WriteByte(' ')
		case r == '%':
			for !c.eof() && c.peek() != '\n' {
				c.next()
			}
		default:
			b.WriteRune(r)
		}
	}
	return collapse(b.String())
}

// accentArgument reads the base of an accent: a braced group or, after a
// control symbol, a single letter
func accentArgument(c *cursor, allowBare bool) string {
	if c.peek() == '{' {
		raw, _ := c.readBraced()
		return plainText(raw)
	}
	if allowBare && unicode.IsLetter(c.peek()) {
		return string(c.next())
	}
	return ""
}

// applyAccent places a combining mark after the first rune of base. An empty
// base yields the spacing form of the accent.
func applyAccent(base string, mark rune, spacing rune) string {
	runes := []rune(base)
	if len(runes) == 0 {
		if spacing != 0 {
			return string(spacing)
		}
		return ""
	}
	return string(runes[0]) + string(mark) + string(runes[1:])
}

// unescape resolves the escapes that commonly appear inside raw arguments
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	r := strings.NewReplacer(
		`\_`, "_",
		`\&`, "&",
		`\#`, "#",
		`\%`, "%",
		`\$`, "$",
		`\{`, "{",
		`\}`, "}",
		`\textbackslash{}`, `\`,
		`\textbackslash`, `\`,
	)
	return r.Replace(s)
}
