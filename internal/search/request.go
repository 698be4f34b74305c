package search

import (
	"strconv"
	"strings"
)

const (
	MinPageSize     = 5
	MaxPageSize     = 50
	DefaultPageSize = 20
)

// Request is one incoming search call, already parsed out of the transport
// layer. Zero values mean "not set".
type Request struct {
	RouteType string
	Q         string
	// Filters maps filter id to the selected value(s).
	Filters map[string][]string
	// Conditions carries the per-request combination choice for filters
	// declared user-defined.
	Conditions map[string]Condition
	Graph      string
	Lang       string
	Page       int
	PageSize   int
	SortBy     string
	SortDesc   bool
	// SimilarURIs restricts candidates to an explicit URI set, produced by
	// the similarity collaborator. nil means no restriction; an empty
	// non-nil set also degrades to no restriction.
	SimilarURIs []string
}

// EffectivePage returns the 1-based page, defaulting anything unusable to 1.
func (r *Request) EffectivePage() int {
	if r.Page < 1 {
		return 1
	}
	return r.Page
}

// EffectivePageSize clamps the requested page size into [MinPageSize,
// MaxPageSize]; unset yields DefaultPageSize. Out-of-range values are
// clamped, never rejected.
func (r *Request) EffectivePageSize() int {
	if r.PageSize == 0 {
		return DefaultPageSize
	}
	if r.PageSize < MinPageSize {
		return MinPageSize
	}
	if r.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return r.PageSize
}

// Offset computes the solution offset for the effective page.
func (r *Request) Offset() int {
	return r.EffectivePageSize() * (r.EffectivePage() - 1)
}

// ConditionFor resolves the combination policy for a filter: the filter's
// fixed policy, or the request's choice when the filter is user-defined.
// Anything unset or unrecognized falls back to OR.
func (r *Request) ConditionFor(f *Filter) Condition {
	cond := f.Condition
	if cond == CondUser {
		cond = r.Conditions[f.ID]
	}
	switch cond {
	case CondAnd, CondOr:
		return cond
	default:
		return CondOr
	}
}

// ParsePage parses a page parameter; non-numeric or non-positive input
// yields page 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParsePageSize parses a page-size parameter; empty or non-numeric input
// yields 0, which EffectivePageSize maps to the default.
func ParsePageSize(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Truthy reports whether a boolean option parameter was explicitly set.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
