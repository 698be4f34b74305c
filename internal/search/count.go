package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/silknow/explorer-api/internal/sparql"
)

// approximateCountLimit caps the counting subquery when an exact total is
// not worth the endpoint's time (autocomplete and other typeahead paths).
const approximateCountLimit = 1000

// countQuery wraps the template's WHERE body in a COUNT(DISTINCT ?id)
// projection. The body is identical to the main query's; only the outer
// projection differs, and the main query's LIMIT/OFFSET never apply here.
func countQuery(tpl *sparql.Template, approximate bool) (string, error) {
	body, err := tpl.WhereBody()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, prefix := range sparql.SortedKeys(tpl.Prefixes) {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", prefix, tpl.Prefixes[prefix])
	}
	b.WriteString("SELECT (COUNT(DISTINCT ?id) AS ?count)\nWHERE {\n")
	if approximate {
		b.WriteString("  { SELECT DISTINCT ?id WHERE {\n")
		b.WriteString(body)
		fmt.Fprintf(&b, "\n  } LIMIT %d }\n", approximateCountLimit)
	} else {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

// Count runs the counting query for a bound template. Failures degrade to a
// zero total, matching the executor's "no results" policy.
func (e *Executor) Count(ctx context.Context, tpl *sparql.Template, approximate bool) int {
	query, err := countQuery(tpl, approximate)
	if err != nil {
		e.log.Warn("count query build failed", "error", err)
		return 0
	}
	resp := e.Select(ctx, query)
	if resp == nil {
		return 0
	}
	for _, row := range resp.Results.Bindings {
		cell, ok := row["count"]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(cell.Value)
		if err != nil {
			e.log.Warn("unparseable count value", "value", cell.Value)
			return 0
		}
		return n
	}
	return 0
}
