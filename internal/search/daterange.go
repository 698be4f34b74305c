package search

import (
	"fmt"
	"strconv"
	"strings"
)

// YearRangeClause handles date filters whose value is a year ("1400") or an
// inclusive range ("1400-1500"). Where fragments bind Var to the entity's
// dating; the generated FILTER constrains it numerically, so user input
// never reaches the query as raw text.
type YearRangeClause struct {
	Where []string
	Var   string
}

func (c YearRangeClause) Clauses(value string) ([]string, string) {
	from, to, ok := parseYearRange(value)
	if !ok {
		return nil, ""
	}
	filter := fmt.Sprintf("xsd:integer(?%s) >= %d && xsd:integer(?%s) <= %d", c.Var, from, c.Var, to)
	return append([]string(nil), c.Where...), filter
}

func parseYearRange(value string) (int, int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(value, "-", 2)
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	to := from
	if len(parts) == 2 {
		to, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, false
		}
	}
	if to < from {
		from, to = to, from
	}
	return from, to, true
}
