// Package lexical builds the inverted keyword index and title lookup used by
// the query pipeline's fallback stages.
package lexical

import (
	"sort"
	"unicode"

	"github.com/occsearch/engine/internal/catalog"
)

// Index holds the derived lexical structures for one catalog snapshot.
type Index struct {
	// Inverted maps a lowercased word (a maximal alphabetic run of length
	// >= 3) to the sorted, deduplicated list of codes whose title or any
	// synonym contains it.
	Inverted map[string][]string
}

// Build scans every record's title and synonyms and produces the inverted
// keyword index described in the catalog's lexical index contract.
func Build(records []catalog.Record) *Index {
	inverted := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	add := func(word, code string) {
		if seen[word] == nil {
			seen[word] = make(map[string]struct{})
		}
		if _, ok := seen[word][code]; ok {
			return
		}
		seen[word][code] = struct{}{}
		inverted[word] = append(inverted[word], code)
	}

	for _, rec := range records {
		for _, w := range Words(rec.Title) {
			add(w, rec.Code)
		}
		for _, syn := range rec.Synonyms {
			for _, w := range Words(syn) {
				add(w, rec.Code)
			}
		}
	}

	for word, codes := range inverted {
		sort.Strings(codes)
		inverted[word] = codes
	}

	return &Index{Inverted: inverted}
}

// Words splits s into lowercased maximal alphabetic runs of length >= 3.
func Words(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) >= 3 {
			words = append(words, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			cur = append(cur, unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return words
}
