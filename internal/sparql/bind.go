package sparql

import (
	"fmt"
	"strings"
)

// LangToken is the placeholder route templates use where the request's
// display language must be injected, e.g. FILTER(LANG(?label) = "$lang").
const LangToken = "$lang"

// BindParams carries the per-request values substituted into a template.
type BindParams struct {
	// Values maps a variable name to already-formatted RDF terms
	// (FormatURI/Quote output) bound through a VALUES block.
	Values map[string][]string
	// Lang replaces LangToken occurrences in WHERE and FILTER clauses.
	Lang string
	// Limit/Offset override the template's solution modifiers when > 0.
	Limit  int
	Offset int
}

// Bind produces a fully parameterized clone of tpl. The shared template is
// never touched; all substitution happens on the copy.
func Bind(tpl *Template, params BindParams) (*Template, error) {
	if tpl == nil {
		return nil, fmt.Errorf("nil template")
	}
	if tpl.Projection == nil {
		return nil, fmt.Errorf("template has no projection")
	}
	out := tpl.Clone()

	lang := EscapeLiteral(params.Lang)
	if lang != "" {
		for i, clause := range out.Where {
			out.Where[i] = strings.ReplaceAll(clause, LangToken, lang)
		}
		for i, f := range out.Filter {
			out.Filter[i] = strings.ReplaceAll(f, LangToken, lang)
		}
	}

	for v, terms := range params.Values {
		if out.Values == nil {
			out.Values = map[string][]string{}
		}
		out.Values[v] = append([]string(nil), terms...)
	}

	if params.Limit > 0 {
		out.Limit = params.Limit
	}
	if params.Offset > 0 {
		out.Offset = params.Offset
	}
	return out, nil
}
