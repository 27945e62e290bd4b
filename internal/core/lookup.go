package core

import (
	"slices"
	"strings"
)

// LookupByLabel finds an entry by its label.
// Returns nil if not found.
func LookupByLabel(entries []Entry, label string) *Entry {
	for i := range entries {
		if entries[i].Label == label {
			return &entries[i]
		}
	}
	return nil
}

// LookupByIndex finds an entry by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(entries []Entry, index int) *Entry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Search finds entries whose label, category or URL contains term.
// Case-insensitive substring match.
func Search(entries []Entry, term string) []Entry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Label), term) ||
			strings.Contains(strings.ToLower(e.Category), term) ||
			strings.Contains(strings.ToLower(e.URL), term) {
			result = append(result, e)
		}
	}
	return result
}

// UniqueCategories returns the sorted, distinct non-empty categories.
func UniqueCategories(entries []Entry) []string {
	var categories []string
	for _, e := range entries {
		if e.Category != "" && !slices.Contains(categories, e.Category) {
			categories = append(categories, e.Category)
		}
	}
	slices.SortFunc(categories, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return categories
}
