package render

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formula is one TeX fragment cut out of a markdown field.
type formula struct {
	TeX     string
	Display bool
}

const (
	placeholderPrefix = "GIAOANMATH"
	placeholderSuffix = "END"
)

var displayMath = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)

func placeholder(i int) string {
	return placeholderPrefix + strconv.Itoa(i) + placeholderSuffix
}

// extractMath replaces $$…$$ (block) and then $…$ (inline) with plain
// placeholders. An inline formula stays on one line and its dollars must not
// touch another dollar sign.
func extractMath(src string) (string, []formula) {
	var found []formula
	src = displayMath.ReplaceAllStringFunc(src, func(m string) string {
		tex := strings.TrimSpace(m[2 : len(m)-2])
		found = append(found, formula{TeX: tex, Display: true})
		return placeholder(len(found) - 1)
	})

	var sb strings.Builder
	i := 0
	for i < len(src) {
		if src[i] != '$' || (i > 0 && src[i-1] == '$') {
			sb.WriteByte(src[i])
			i++
			continue
		}
		j := i + 1
		for j < len(src) && src[j] != '$' && src[j] != '\n' {
			j++
		}
		closed := j < len(src) && src[j] == '$' && j > i+1
		if !closed || (j+1 < len(src) && src[j+1] == '$') {
			sb.WriteByte(src[i])
			i++
			continue
		}
		found = append(found, formula{TeX: src[i+1 : j]})
		sb.WriteString(placeholder(len(found) - 1))
		i = j + 1
	}
	return sb.String(), found
}

// restoreMath puts converted formulas back. A block formula that ended up
// alone in a paragraph replaces the whole paragraph; one inside running text
// stays in it, so formulaHTML keeps to phrasing content.
func restoreMath(s string, found []formula, convert func(formula) string) string {
	for i := len(found) - 1; i >= 0; i-- {
		ph := placeholder(i)
		out := convert(found[i])
		if found[i].Display {
			s = strings.ReplaceAll(s, "<p>"+ph+"</p>", out)
		}
		s = strings.ReplaceAll(s, ph, out)
	}
	return s
}

func formulaHTML(f formula) string {
	body := texToHTML(f.TeX)
	if f.Display {
		return `<span class="math-display">` + body + `</span>`
	}
	return `<span class="math">` + body + `</span>`
}

func formulaText(f formula) string {
	body := texToText(f.TeX)
	if f.Display {
		return "\n\n    " + body + "\n\n"
	}
	return body
}

// replaceMathWithText turns every formula of a markdown field into readable
// Unicode, leaving the rest of the markdown untouched.
func replaceMathWithText(src string) string {
	s, found := extractMath(src)
	if len(found) == 0 {
		return src
	}
	return restoreMath(s, found, formulaText)
}

var texSymbols = map[string]string{
	"times": "×", "cdot": "·", "div": "÷", "pm": "±", "mp": "∓",
	"le": "≤", "leq": "≤", "ge": "≥", "geq": "≥", "ne": "≠", "neq": "≠",
	"approx": "≈", "equiv": "≡", "sim": "∼", "simeq": "≃", "cong": "≅", "propto": "∝",
	"infty": "∞", "circ": "°", "degree": "°", "angle": "∠", "triangle": "△",
	"perp": "⊥", "parallel": "∥", "in": "∈", "notin": "∉", "subset": "⊂",
	"subseteq": "⊆", "supset": "⊃", "cup": "∪", "cap": "∩", "emptyset": "∅",
	"varnothing": "∅", "forall": "∀", "exists": "∃", "Rightarrow": "⇒",
	"Leftarrow": "⇐", "Leftrightarrow": "⇔", "rightarrow": "→", "to": "→",
	"leftarrow": "←", "mapsto": "↦", "cdots": "⋯", "ldots": "…", "dots": "…",
	"sum": "∑", "prod": "∏", "int": "∫", "partial": "∂", "nabla": "∇",
	"alpha": "α", "beta": "β", "gamma": "γ", "Gamma": "Γ", "delta": "δ",
	"Delta": "Δ", "epsilon": "ε", "varepsilon": "ε", "theta": "θ", "Theta": "Θ",
	"lambda": "λ", "Lambda": "Λ", "mu": "μ", "pi": "π", "Pi": "Π", "rho": "ρ",
	"sigma": "σ", "Sigma": "Σ", "tau": "τ", "phi": "φ", "varphi": "φ",
	"Phi": "Φ", "omega": "ω", "Omega": "Ω", "percent": "%",
	"{": "{", "}": "}", "%": "%", "$": "$", "&": "&", "#": "#", "_": "_",
	",": " ", ";": " ", ":": " ", " ": " ", "\\": " ", "quad": " ", "qquad": "  ", "!": "",
	"left": "", "right": "", "displaystyle": "", "limits": "",
}

var textFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "log": true, "ln": true,
	"lim": true, "max": true, "min": true, "exp": true,
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶',
	'7': '⁷', '8': '⁸', '9': '⁹', '+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽',
	')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ', '°': '°',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆',
	'7': '₇', '8': '₈', '9': '₉', '+': '₊', '-': '₋', '=': '₌', '(': '₍',
	')': '₎',
}

// texConverter walks a small subset of TeX math. It never fails: anything it
// does not understand is written out literally.
type texConverter struct {
	src  string
	pos  int
	html bool
}

func texToHTML(tex string) string {
	c := &texConverter{src: tex, html: true}
	return c.until(0)
}

func texToText(tex string) string {
	c := &texConverter{src: tex}
	return strings.TrimSpace(c.until(0))
}

// until converts up to the closing brace of the current group (depth > 0)
// or the end of input.
func (c *texConverter) until(depth int) string {
	var sb strings.Builder
	var letters strings.Builder
	flush := func() {
		if letters.Len() == 0 {
			return
		}
		if c.html {
			sb.WriteString("<i>" + html.EscapeString(letters.String()) + "</i>")
		} else {
			sb.WriteString(letters.String())
		}
		letters.Reset()
	}

	for c.pos < len(c.src) {
		r, size := utf8.DecodeRuneInString(c.src[c.pos:])
		switch {
		case r == '}' && depth > 0:
			c.pos += size
			flush()
			return sb.String()
		case r == '{':
			c.pos += size
			flush()
			sb.WriteString(c.until(depth + 1))
		case r == '^' || r == '_':
			c.pos += size
			flush()
			sb.WriteString(c.script(r == '^', c.argument()))
		case r == '\\':
			flush()
			sb.WriteString(c.command())
		case r == ' ' || r == '\t' || r == '\n':
			c.pos += size
			flush()
			if s := sb.String(); s != "" && !strings.HasSuffix(s, " ") {
				sb.WriteByte(' ')
			}
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			c.pos += size
			letters.WriteRune(r)
		default:
			c.pos += size
			flush()
			sb.WriteString(c.escape(string(r)))
		}
	}
	flush()
	return sb.String()
}

// argument reads one TeX argument: a braced group, a command or a single
// character.
func (c *texConverter) argument() string {
	for c.pos < len(c.src) && c.src[c.pos] == ' ' {
		c.pos++
	}
	if c.pos >= len(c.src) {
		return ""
	}
	r, size := utf8.DecodeRuneInString(c.src[c.pos:])
	switch r {
	case '{':
		c.pos += size
		return c.until(1)
	case '\\':
		return c.command()
	default:
		c.pos += size
		if c.html && ((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return "<i>" + string(r) + "</i>"
		}
		return c.escape(string(r))
	}
}

func (c *texConverter) optionalArgument() string {
	if c.pos >= len(c.src) || c.src[c.pos] != '[' {
		return ""
	}
	end := strings.IndexByte(c.src[c.pos:], ']')
	if end < 0 {
		return ""
	}
	inner := c.src[c.pos+1 : c.pos+end]
	c.pos += end + 1
	sub := &texConverter{src: inner, html: c.html}
	return sub.until(0)
}

func (c *texConverter) command() string {
	c.pos++ // backslash
	if c.pos >= len(c.src) {
		return c.escape("\\")
	}
	start := c.pos
	for c.pos < len(c.src) && ((c.src[c.pos] >= 'a' && c.src[c.pos] <= 'z') || (c.src[c.pos] >= 'A' && c.src[c.pos] <= 'Z')) {
		c.pos++
	}
	if c.pos == start {
		// control symbol such as \, or \{
		_, size := utf8.DecodeRuneInString(c.src[c.pos:])
		c.pos += size
	}
	name := c.src[start:c.pos]

	switch name {
	case "frac", "dfrac", "tfrac":
		num, den := c.argument(), c.argument()
		if c.html {
			return `<span class="frac"><span class="num">` + num + `</span><span class="den">` + den + `</span></span>`
		}
		return wrapText(num) + "/" + wrapText(den)
	case "sqrt":
		index := c.optionalArgument()
		arg := c.argument()
		if c.html {
			out := `√<span class="radicand">` + arg + `</span>`
			if index != "" {
				out = "<sup>" + index + "</sup>" + out
			}
			return out
		}
		return index + "√" + wrapText(arg)
	case "text", "textrm", "mathrm", "operatorname", "mbox":
		return c.rawGroup()
	case "textbf", "mathbf":
		inner := c.argument()
		if c.html {
			return "<b>" + inner + "</b>"
		}
		return inner
	case "overline", "bar":
		inner := c.argument()
		if c.html {
			return `<span class="overline">` + inner + `</span>`
		}
		return inner
	case "widehat":
		return "∠" + c.argument()
	case "hat":
		return c.argument() + "̂"
	case "vec", "overrightarrow":
		inner := c.argument()
		if c.html {
			return `<span class="vec">` + inner + `</span>`
		}
		return inner + "⃗"
	}

	if sym, ok := texSymbols[name]; ok {
		if name == "left" || name == "right" {
			return c.delimiter()
		}
		return c.escape(sym)
	}
	if textFunctions[name] {
		return name
	}
	return c.escape("\\" + name)
}

// delimiter reads the token after \left or \right; "." means none.
func (c *texConverter) delimiter() string {
	if c.pos >= len(c.src) {
		return ""
	}
	if c.src[c.pos] == '\\' {
		return c.command()
	}
	r, size := utf8.DecodeRuneInString(c.src[c.pos:])
	c.pos += size
	if r == '.' {
		return ""
	}
	return c.escape(string(r))
}

// rawGroup copies a braced argument without interpreting it.
func (c *texConverter) rawGroup() string {
	if c.pos >= len(c.src) || c.src[c.pos] != '{' {
		return ""
	}
	depth := 0
	start := c.pos + 1
	for i := c.pos; i < len(c.src); i++ {
		switch c.src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				c.pos = i + 1
				return c.escape(c.src[start:i])
			}
		}
	}
	c.pos = len(c.src)
	return c.escape(c.src[start:])
}

func (c *texConverter) script(sup bool, arg string) string {
	if c.html {
		if sup {
			return "<sup>" + arg + "</sup>"
		}
		return "<sub>" + arg + "</sub>"
	}
	table := subscripts
	if sup {
		table = superscripts
	}
	var sb strings.Builder
	for _, r := range arg {
		m, ok := table[r]
		if !ok {
			if sup {
				if arg == "°" {
					return "°"
				}
				return "^" + wrapText(arg)
			}
			return "_" + wrapText(arg)
		}
		sb.WriteRune(m)
	}
	return sb.String()
}

func (c *texConverter) escape(s string) string {
	if c.html {
		return html.EscapeString(s)
	}
	return s
}

// wrapText parenthesises multi-character operands in plain text.
func wrapText(s string) string {
	if utf8.RuneCountInString(s) <= 1 {
		return s
	}
	return "(" + s + ")"
}
