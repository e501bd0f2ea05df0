package pipeline

import (
	"sort"
	"strings"
)

// SynonymBank maps a head term to curated alternate surface forms. It is
// plain configuration data, not algorithm, so callers (including tests) can
// substitute their own.
type SynonymBank map[string][]string

// DefaultSynonymBank is a small curated bank for common occupation-search
// vocabulary mismatches.
func DefaultSynonymBank() SynonymBank {
	return SynonymBank{
		"tailor":            {"sewing machine operator", "garment maker", "seamstress"},
		"driver":            {"chauffeur", "transport operator", "vehicle operator"},
		"teacher":           {"instructor", "educator", "faculty member"},
		"it professional":   {"software engineer", "computer programmer", "systems analyst"},
		"healthcare worker": {"nurse", "medical assistant", "health aide"},
		"coolie":            {"porter", "loader", "cargo handler"},
		"mali":              {"gardener", "horticulturist", "landscaper"},
	}
}

// Expand produces query variants by substituting any head term occurring in
// query with each of its curated alternates. The number of variants is
// bounded by the bank entries whose head term actually appears in the query.
// Matching terms are visited in sorted order so that, unlike a bare map
// range, the result is stable across repeated calls with the same query.
func (b SynonymBank) Expand(query string) []string {
	lowerQ := strings.ToLower(query)

	terms := make([]string, 0, len(b))
	for term := range b {
		if strings.Contains(lowerQ, term) {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	var variants []string
	for _, term := range terms {
		for _, alt := range b[term] {
			variants = append(variants, strings.ReplaceAll(lowerQ, term, alt))
		}
	}
	return variants
}
