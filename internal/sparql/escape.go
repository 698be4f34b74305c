package sparql

import (
	"fmt"
	"strings"
)

// EscapeLiteral escapes a user-supplied string for interpolation inside a
// double-quoted SPARQL literal. Quotes, backslashes and control characters
// are the forms an attacker can use to break out of the literal.
func EscapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Quote wraps s as a double-quoted SPARQL literal with escaping applied.
func Quote(s string) string {
	return `"` + EscapeLiteral(s) + `"`
}

// FormatURI renders a URI reference term. Characters that terminate or
// confuse an IRIREF are rejected to the empty string, which callers drop.
func FormatURI(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.ContainsAny(u, "<>\"{}|^`\\ \t\n\r") {
		return ""
	}
	return "<" + u + ">"
}

// EscapeRegex prepares user text for interpolation inside a quoted SPARQL
// REGEX pattern: regex metacharacters are neutralized first, then the
// result is literal-escaped for the surrounding quotes.
func EscapeRegex(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return EscapeLiteral(b.String())
}
