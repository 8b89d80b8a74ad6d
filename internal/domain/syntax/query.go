package syntax

import (
	"fmt"
	"strings"
)

// WildcardField is the filter key that searches every mapped field.
const WildcardField = "*"

// ComparisonOperator selects how a filter value is compared.
type ComparisonOperator string

const (
	OpEquals   ComparisonOperator = "eq"
	OpContains ComparisonOperator = "co"
	OpIn       ComparisonOperator = "in"
	OpBetween  ComparisonOperator = "bw"
)

// FilterElement is the filter applied to one field.
type FilterElement struct {
	Values []any              `json:"v" yaml:"v"`
	Op     ComparisonOperator `json:"op,omitempty" yaml:"op,omitempty"`
}

// FilterBy maps public field names, or WildcardField, to filters.
type FilterBy map[string]FilterElement

// FilterOperator joins the terms of named-field filters.
type FilterOperator string

const (
	FilterAnd FilterOperator = "AND"
	FilterOr  FilterOperator = "OR"
)

// ParseFilterOperator accepts "and"/"or" case-insensitively; empty means AND.
func ParseFilterOperator(s string) (FilterOperator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return FilterAnd, nil
	case "OR":
		return FilterOr, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// SortField orders results by one public field.
type SortField struct {
	Field     string `json:"field" yaml:"field"`
	Ascending bool   `json:"ascending" yaml:"ascending"`
}

// FetchOptions parameterizes a fetch by uid.
type FetchOptions struct {
	ForUpdate        bool
	LibraryName      string
	Status           Status
	Version          string
	ReturnStudyCount bool
}

// ListOptions parameterizes a paged list.
type ListOptions struct {
	Status           Status
	LibraryName      string
	ReturnStudyCount bool
	SortBy           []SortField
	// PageNumber is 1-based.
	PageNumber int
	// PageSize 0 returns every match.
	PageSize       int
	FilterBy       FilterBy
	FilterOperator FilterOperator
	TotalCount     bool
	ForAuditTrail  bool
}

// HeaderOptions parameterizes a distinct header values lookup.
type HeaderOptions struct {
	FieldName      string
	Status         Status
	SearchString   string
	FilterBy       FilterBy
	FilterOperator FilterOperator
	ResultCount    int
}

// Page is one page of read-only results with the optional total count.
type Page[T any] struct {
	Items      []*Retrieved[T] `json:"items" yaml:"items"`
	TotalCount int             `json:"total" yaml:"total"`
}
