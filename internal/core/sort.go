package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/winsession/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByLabel    SortField = "label"
	SortByCategory SortField = "category"
	SortByType     SortField = "type"
	SortByURL      SortField = "url"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria. The zero value sorts by label,
// ascending.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options.
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByLabel, Order: SortAsc}
}

// Sort sorts entries in place. Ties keep workspace, then label order.
func Sort(entries []Entry, opts SortOptions) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		var c int
		switch opts.Field {
		case SortByCategory:
			c = cmp.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		case SortByType:
			c = cmp.Compare(typeRank(a), typeRank(b))
		case SortByURL:
			c = cmp.Compare(a.URL, b.URL)
		}
		if c == 0 {
			c = cmp.Or(cmp.Compare(a.Workspace, b.Workspace), cmp.Compare(a.Label, b.Label))
		}
		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

// typeRank orders main before aux before child.
func typeRank(e Entry) int {
	switch e.Type {
	case model.WindowTypeMain:
		return 0
	case model.WindowTypeAux:
		return 1
	case model.WindowTypeChild:
		return 2
	}
	return 3
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "label", "l":
		return SortByLabel, nil
	case "category", "cat", "c":
		return SortByCategory, nil
	case "type", "t":
		return SortByType, nil
	case "url", "path", "u":
		return SortByURL, nil
	default:
		return "", fmt.Errorf("invalid sort field %q (use label, category, type or url)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (use asc or desc)", s)
	}
}
