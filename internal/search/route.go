// Package search implements the query-construction and search-orchestration
// pipeline: filter compilation, SPARQL execution with caching, the counting
// query, the bounded detail fan-out and result assembly.
package search

import (
	"strings"

	"github.com/silknow/explorer-api/internal/sparql"
)

// ValueToken marks where a filter value lands inside a clause template.
const ValueToken = "$value"

// TextToken marks where the free-text query lands inside a route's
// text-search clauses.
const TextToken = "$text"

// Condition selects how multiple values of one filter combine.
type Condition string

const (
	CondAnd  Condition = "and"
	CondOr   Condition = "or"
	CondUser Condition = "user-defined"
)

// FilterKind is the closed set of filter behaviors.
type FilterKind int

const (
	KindEnum FilterKind = iota
	KindMultiEnum
	KindOption
	KindDateRange
)

// FilterStrategy turns one selected value into WHERE fragments and an
// optional FILTER expression. Implementations must be pure; the compiler
// calls them once per active value per request.
type FilterStrategy interface {
	Clauses(value string) (where []string, filter string)
}

// Filter describes one filter control of a route.
type Filter struct {
	ID           string
	Kind         FilterKind
	Condition    Condition
	DefaultValue []string
	// Options enumerates candidate values for UI lists and autocomplete.
	Options *sparql.Template
	// OptionsLabelVar is the projection variable autocomplete narrows on.
	OptionsLabelVar string
	Strategy        FilterStrategy
	// Vocabulary links the filter's values to a controlled vocabulary id,
	// when one applies.
	Vocabulary string
}

// SortField is one exposed sort key: the variable the query orders on and
// the graph patterns that bind it. The binding patterns are appended only
// when the sort is selected, so an ORDER BY never references a variable no
// clause binds.
type SortField struct {
	Var   string
	Where []string
}

// Route is the static configuration of one browsable entity type.
type Route struct {
	Type string
	// URIBase qualifies bare entity identifiers into full URIs.
	URIBase string

	List   *sparql.Template
	Detail *sparql.Template

	Filters []*Filter

	// TextSearchWhere / TextSearchFilter receive the escaped free-text
	// query through TextToken.
	TextSearchWhere  []string
	TextSearchFilter string

	SortFields map[string]SortField
}

// QualifiedID expands a bare identifier against the route's URI base.
// Absolute URIs pass through untouched.
func (r *Route) QualifiedID(id string) string {
	if id == "" || r.URIBase == "" || strings.Contains(id, "://") {
		return id
	}
	return r.URIBase + "/" + strings.TrimPrefix(id, "/")
}

// FilterByID returns the route's filter with the given id, or nil.
func (r *Route) FilterByID(id string) *Filter {
	for _, f := range r.Filters {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// ClauseTemplate is the declarative strategy covering most filters: WHERE
// fragments and a FILTER expression with the value substituted as either a
// URI term or an escaped literal. A value that fails URI validation
// contributes nothing.
type ClauseTemplate struct {
	Where      []string
	Filter     string
	ValueAsURI bool
}

func (c ClauseTemplate) Clauses(value string) ([]string, string) {
	var term string
	if c.ValueAsURI {
		term = sparql.FormatURI(value)
		if term == "" {
			return nil, ""
		}
	} else {
		term = sparql.Quote(value)
	}
	where := make([]string, 0, len(c.Where))
	for _, w := range c.Where {
		where = append(where, strings.ReplaceAll(w, ValueToken, term))
	}
	filter := strings.ReplaceAll(c.Filter, ValueToken, term)
	return where, filter
}
