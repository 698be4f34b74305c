package sparql

import (
	"fmt"
	"sort"
	"strings"
)

// Compile renders the template as SPARQL 1.1 text. It fails on templates
// that cannot produce a well-formed query (no projection, no graph
// patterns, unbalanced braces in a configured clause); those failures are
// recovered by the caller as an empty result, never a crash.
func (t *Template) Compile() (string, error) {
	if t == nil {
		return "", fmt.Errorf("nil template")
	}
	vars, err := t.variables()
	if err != nil {
		return "", err
	}
	body, err := t.WhereBody()
	if err != nil {
		return "", err
	}
	for _, v := range vars {
		if !t.binds(v) {
			return "", fmt.Errorf("projection variable ?%s is never bound", v)
		}
	}

	var b strings.Builder
	for _, prefix := range SortedKeys(t.Prefixes) {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", prefix, t.Prefixes[prefix])
	}

	b.WriteString("SELECT DISTINCT")
	for _, v := range vars {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	b.WriteString("\nWHERE {\n")
	b.WriteString(body)
	b.WriteString("\n}")

	if t.OrderBy != nil && t.OrderBy.Var != "" {
		if t.OrderBy.Desc {
			fmt.Fprintf(&b, "\nORDER BY DESC(?%s)", t.OrderBy.Var)
		} else {
			fmt.Fprintf(&b, "\nORDER BY ASC(?%s)", t.OrderBy.Var)
		}
	}
	if t.Limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", t.Limit)
	}
	if t.Offset > 0 {
		fmt.Fprintf(&b, "\nOFFSET %d", t.Offset)
	}
	return b.String(), nil
}

// WhereBody renders just the graph-pattern body: WHERE clauses joined as
// conjunctive patterns, VALUES blocks, then FILTER lines. The counting
// query reuses this body verbatim under a different projection.
func (t *Template) WhereBody() (string, error) {
	if len(t.Where) == 0 && len(t.Values) == 0 {
		return "", fmt.Errorf("template has no graph patterns")
	}
	var parts []string
	for _, clause := range t.Where {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if !balancedBraces(clause) {
			return "", fmt.Errorf("unbalanced braces in where clause: %s", clause)
		}
		parts = append(parts, "  "+clause+" .")
	}
	for _, v := range SortedKeys(t.Values) {
		terms := t.Values[v]
		if len(terms) == 0 {
			// An empty VALUES block forbids every solution; skipping it
			// keeps the query unrestricted instead.
			continue
		}
		parts = append(parts, fmt.Sprintf("  VALUES ?%s { %s }", v, strings.Join(terms, " ")))
	}
	for _, f := range t.Filter {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !balancedBraces(f) {
			return "", fmt.Errorf("unbalanced braces in filter: %s", f)
		}
		parts = append(parts, fmt.Sprintf("  FILTER(%s)", f))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("template compiled to an empty body")
	}
	return strings.Join(parts, "\n"), nil
}

// binds reports whether a variable appears in a graph pattern: a WHERE
// clause or a non-empty VALUES block. A variable referenced only by a
// FILTER expression has no binding.
func (t *Template) binds(v string) bool {
	if len(t.Values[v]) > 0 {
		return true
	}
	for _, clause := range t.Where {
		if containsVar(clause, v) {
			return true
		}
	}
	return false
}

func containsVar(clause, v string) bool {
	needle := "?" + v
	for i := 0; ; {
		j := strings.Index(clause[i:], needle)
		if j < 0 {
			return false
		}
		end := i + j + len(needle)
		if end == len(clause) || !isVarChar(clause[end]) {
			return true
		}
		i = end
	}
}

func isVarChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func balancedBraces(s string) bool {
	depth := 0
	inString := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}

// SortedKeys returns the keys of a string-keyed map in sorted order, for
// deterministic query text.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
