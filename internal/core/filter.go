package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmylchreest/winsession/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual    FilterOp = "="  // Exact match
	FilterOpNotEqual FilterOp = "!=" // Not equal
	FilterOpContains FilterOp = "~"  // Contains substring, case-insensitive
	FilterOpRegex    FilterOp = "~=" // Regex match
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // label, category, type, url, workspace
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex *regexp.Regexp // Compiled regex for ~= operator
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering entries.
type FilterOptions struct {
	Type     model.WindowType // Exact window type (empty = any)
	Category string           // Exact category (empty = any)
	Limit    int              // Maximum results (0 = unlimited)
}

// Filter filters entries based on the provided options.
func Filter(entries []Entry, opts FilterOptions) []Entry {
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Type != "" && e.Type != opts.Type {
			continue
		}
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		result = append(result, e)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2"
//
// Supported fields: label, category, type, url, workspace
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex)
//
// Examples:
//   - "type=child" - modal children only
//   - "category=settings,url~advanced"
//   - "label~=^aux-01J"
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// parseCondition parses a single condition like "type=aux" or "url~settings".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first, so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}

		cond := FilterCondition{
			Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
			Operator: op,
			Value:    strings.TrimSpace(s[idx+len(op):]),
		}
		if err := cond.init(); err != nil {
			return FilterCondition{}, err
		}
		return cond, nil
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init normalizes the field name and validates the value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "label", "name":
		c.Field = "label"
	case "category", "cat":
		c.Field = "category"
	case "url", "path":
		c.Field = "url"
	case "workspace", "ws":
		c.Field = "workspace"
	case "type", "kind":
		c.Field = "type"
		if c.Operator == FilterOpEqual || c.Operator == FilterOpNotEqual {
			if !model.WindowType(c.Value).Valid() {
				return fmt.Errorf("invalid window type %q, must be one of: %v", c.Value, model.ValidWindowTypes())
			}
		}
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

// Empty reports whether the expression has no conditions.
func (f *FilterExpr) Empty() bool {
	return f == nil || len(f.Conditions) == 0
}

// Match tests if an entry matches the filter expression.
func (f *FilterExpr) Match(e Entry) bool {
	if f == nil {
		return true
	}
	for _, cond := range f.Conditions {
		if !cond.Match(e) {
			return false
		}
	}
	return true
}

// Match tests if an entry matches this single condition.
func (c *FilterCondition) Match(e Entry) bool {
	switch c.Field {
	case "label":
		return c.matchString(e.Label)
	case "category":
		return c.matchString(e.Category)
	case "url":
		return c.matchString(e.URL)
	case "workspace":
		return c.matchString(e.Workspace)
	case "type":
		return c.matchString(string(e.Type))
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// FilterWithExpr filters entries using a filter expression.
func FilterWithExpr(entries []Entry, expr *FilterExpr) []Entry {
	if expr.Empty() {
		return entries
	}

	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if expr.Match(e) {
			result = append(result, e)
		}
	}
	return result
}
