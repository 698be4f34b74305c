package search

import (
	"strings"

	"github.com/silknow/explorer-api/internal/sparql"
)

type compiledClause struct {
	where  []string
	filter string
}

// applyFilters folds the request's active filters, free-text query, graph
// restriction and similarity restriction into the bound template. The
// template is a per-request clone; route configuration is never touched.
func applyFilters(tpl *sparql.Template, route *Route, req *Request) {
	for _, f := range route.Filters {
		values := activeValues(f, req)
		if len(values) == 0 || f.Strategy == nil {
			continue
		}

		var clauses []compiledClause
		for _, v := range values {
			where, filter := f.Strategy.Clauses(v)
			if len(where) == 0 && filter == "" {
				continue
			}
			clauses = append(clauses, compiledClause{where: where, filter: filter})
		}
		if len(clauses) == 0 {
			continue
		}

		switch req.ConditionFor(f) {
		case CondAnd:
			// Each value stands on its own: an independent graph-pattern
			// block carrying that value's WHERE fragments and its FILTER.
			for _, c := range clauses {
				tpl.Where = append(tpl.Where, andBlock(c))
			}
		default:
			applyDisjunction(tpl, clauses)
		}
	}

	if q := strings.TrimSpace(req.Q); q != "" {
		lit := sparql.EscapeLiteral(q)
		for _, w := range route.TextSearchWhere {
			tpl.Where = append(tpl.Where, strings.ReplaceAll(w, TextToken, lit))
		}
		if route.TextSearchFilter != "" {
			tpl.Filter = append(tpl.Filter, strings.ReplaceAll(route.TextSearchFilter, TextToken, lit))
		}
	}

	if g := sparql.FormatURI(req.Graph); g != "" {
		tpl.Where = append(tpl.Where, "GRAPH "+g+" { ?id ?graphP ?graphO }")
	}

	applySimilarity(tpl, req.SimilarURIs)
}

func andBlock(c compiledClause) string {
	var b strings.Builder
	b.WriteString("{ ")
	b.WriteString(strings.Join(c.where, " . "))
	if c.filter != "" {
		if len(c.where) > 0 {
			b.WriteString(" . ")
		}
		b.WriteString("FILTER(" + c.filter + ")")
	}
	b.WriteString(" }")
	return b.String()
}

// applyDisjunction combines all values' WHERE fragments with UNION and all
// FILTER expressions into one disjunction.
func applyDisjunction(tpl *sparql.Template, clauses []compiledClause) {
	var blocks []string
	var filters []string
	for _, c := range clauses {
		if len(c.where) > 0 {
			blocks = append(blocks, "{ "+strings.Join(c.where, " . ")+" }")
		}
		if c.filter != "" {
			filters = append(filters, c.filter)
		}
	}
	if len(blocks) == 1 {
		tpl.Where = append(tpl.Where, blocks[0])
	} else if len(blocks) > 1 {
		tpl.Where = append(tpl.Where, strings.Join(blocks, " UNION "))
	}
	if len(filters) == 1 {
		tpl.Filter = append(tpl.Filter, filters[0])
	} else if len(filters) > 1 {
		tpl.Filter = append(tpl.Filter, "("+strings.Join(filters, " || ")+")")
	}
}

// applySimilarity restricts candidate ids to an explicit URI set. An empty
// or fully-invalid set contributes nothing: an empty VALUES block would
// forbid every result, so absence of restriction is the safe degradation.
func applySimilarity(tpl *sparql.Template, uris []string) {
	if len(uris) == 0 {
		return
	}
	terms := make([]string, 0, len(uris))
	for _, u := range uris {
		if term := sparql.FormatURI(u); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return
	}
	if tpl.Values == nil {
		tpl.Values = map[string][]string{}
	}
	tpl.Values["id"] = terms
}

// activeValues resolves the effective value set for one filter. A boolean
// option contributes only when explicitly truthy; the absent checkbox must
// not generate a restrictive clause. Other kinds fall back to the filter's
// default value when the request carries none.
func activeValues(f *Filter, req *Request) []string {
	raw := req.Filters[f.ID]
	if f.Kind == KindOption {
		if len(raw) > 0 && Truthy(raw[0]) {
			return []string{"true"}
		}
		return nil
	}
	if len(raw) == 0 {
		raw = f.DefaultValue
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			values = append(values, v)
		}
	}
	return values
}
