package esfeatures

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/panbanda/esmin/pkg/feature"
	sitter "github.com/smacker/go-tree-sitter"
)

// regExpConstructor inspects RegExp(pattern, flags) and new RegExp(...).
// Only literal arguments are understood; anything else contributes nothing.
func (d *detector) regExpConstructor(n *sitter.Node, args []*sitter.Node) {
	var (
		pattern, flags string
		known          bool
	)

	if len(args) > 0 {
		switch args[0].Type() {
		case "regex":
			pattern = d.text(args[0].ChildByFieldName("pattern"))
			flags = d.text(args[0].ChildByFieldName("flags"))
			known = true
		default:
			pattern, known = d.literalString(args[0])
		}
	}
	if len(args) > 1 {
		// An explicit flags argument replaces the flags of a regex literal.
		flags, _ = d.literalString(args[1])
	}

	d.regExp(n, pattern, flags, known)
}

// literalString returns the cooked value of a string literal or a template
// literal without substitutions.
func (d *detector) literalString(n *sitter.Node) (string, bool) {
	raw := d.text(n)
	switch n.Type() {
	case "string":
		if len(raw) < 2 {
			return "", false
		}
		return cook(raw[1 : len(raw)-1]), true
	case "template_string":
		for i := range int(n.NamedChildCount()) {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
		if len(raw) < 2 {
			return "", false
		}
		return cook(raw[1 : len(raw)-1]), true
	}
	return "", false
}

// regExp applies the flag and pattern rules. The pattern is only scanned
// when it is known.
func (d *detector) regExp(n *sitter.Node, pattern, flags string, known bool) {
	unicode := false
	sets := false
	for _, f := range flags {
		switch f {
		case 's':
			d.mark(feature.SDotAllFlagForRegularExpressions, n)
		case 'd':
			d.mark(feature.RegExpMatchIndices, n)
		case 'v':
			d.mark(feature.RegexpVFlagWithSetNotationAndPropertiesOfStrings, n)
			sets = true
		case 'u':
			unicode = true
		}
	}

	if !known {
		return
	}
	for _, f := range scanPattern(pattern, unicode || sets, sets).Slice() {
		d.mark(f, n)
	}
}

// scanPattern reports the pattern-level features of a regular expression
// source. Escapes are skipped and group syntax inside character classes is
// ignored. With nestedClasses (the v flag) classes may nest.
func scanPattern(p string, unicode, nestedClasses bool) feature.Set {
	var found feature.Set
	names := make(map[string]bool)
	depth := 0

	for i := 0; i < len(p); i++ {
		switch c := p[i]; {
		case c == '\\':
			if i+1 >= len(p) {
				continue
			}
			next := p[i+1]
			if unicode && (next == 'p' || next == 'P') && i+2 < len(p) && p[i+2] == '{' {
				found.Add(feature.RegExpUnicodePropertyEscapes)
			}
			i++

		case c == '[':
			if depth == 0 || nestedClasses {
				depth++
			}

		case c == ']':
			if depth > 0 {
				depth--
			}

		case depth > 0:

		case c == '(' && i+2 < len(p) && p[i+1] == '?':
			rest := p[i+2:]
			switch {
			case strings.HasPrefix(rest, "<=") || strings.HasPrefix(rest, "<!"):
				found.Add(feature.RegExpLookbehindAssertions)
			case rest[0] == '<':
				end := strings.IndexByte(rest, '>')
				if end <= 1 {
					continue
				}
				name := rest[1:end]
				found.Add(feature.RegExpNamedCaptureGroups)
				if names[name] {
					found.Add(feature.DuplicateNamedCaptureGroups)
				}
				names[name] = true
			case isModifierGroup(rest):
				found.Add(feature.RegExpPatternModifiers)
			}
		}
	}
	return found
}

// isModifierGroup reports whether s, the text after "(?", opens a modifier
// group such as "i:", "-m:" or "ims-s:".
func isModifierGroup(s string) bool {
	letters := 0
	dash := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 'i', 'm', 's':
			letters++
		case '-':
			if dash {
				return false
			}
			dash = true
		case ':':
			return letters > 0
		default:
			return false
		}
	}
	return false
}

// cook resolves JavaScript escape sequences in the body of a string or
// template literal.
func cook(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}

		i++
		switch e := raw[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := hexRune(raw, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte(e)
			}
		case 'u':
			r, width := unicodeEscape(raw[i+1:])
			if width == 0 {
				b.WriteByte(e)
				continue
			}
			b.WriteRune(r)
			i += width
		default:
			// Identity escape, including multi-byte characters.
			r, size := utf8.DecodeRuneInString(raw[i:])
			if r != '\u2028' && r != '\u2029' {
				b.WriteRune(r)
			}
			i += size - 1
		}
	}
	return b.String()
}

// unicodeEscape decodes the part of a \u escape after the u, returning the
// rune and the number of bytes consumed, or 0 if s is not a valid escape.
func unicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0
		}
		r, ok := hexRune(s, 1, end-1)
		if !ok || r > utf8.MaxRune {
			return 0, 0
		}
		return r, end + 1
	}
	r, ok := hexRune(s, 0, 4)
	if !ok {
		return 0, 0
	}
	return r, 4
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
