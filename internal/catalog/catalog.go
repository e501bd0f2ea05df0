// Package catalog loads and indexes the fixed occupation record set.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`^\d{4}\.\d{4}$`)

// Hierarchy is the optional division/group breakdown of an occupation code.
type Hierarchy struct {
	DivisionCode    string `json:"division_code"`
	SubDivisionCode string `json:"sub_division_code"`
	MinorGroupCode  string `json:"minor_group_code"`
	UnitGroupCode   string `json:"unit_group_code"`
	DivisionName    string `json:"division_name"`
}

// Record is a single occupation entry.
type Record struct {
	Code           string     `json:"code"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Synonyms       []string   `json:"synonyms"`
	Examples       []string   `json:"examples"`
	Hierarchy      *Hierarchy `json:"hierarchy,omitempty"`
	SearchKeywords []string   `json:"search_keywords,omitempty"`
	SearchableText string     `json:"searchable_text,omitempty"`
}

// synonymSet collapses case-sensitive duplicates while preserving first-seen order.
func synonymSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Catalog is the immutable, ordered set of occupation records plus derived lookups.
type Catalog struct {
	records   []Record
	byCode    map[string]*Record
	byTitle   map[string]*Record
	skipped   int
	sourceLen int
}

// Records returns the catalog in load order. Callers must not mutate the slice.
func (c *Catalog) Records() []Record { return c.records }

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int { return len(c.records) }

// ByCode looks up a record by its exact code.
func (c *Catalog) ByCode(code string) (Record, bool) {
	r, ok := c.byCode[code]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// ByTitleLower looks up a record by its lowercased title.
func (c *Catalog) ByTitleLower(titleLC string) (Record, bool) {
	r, ok := c.byTitle[titleLC]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Skipped reports how many records from the source file were dropped for
// failing validation (bad code, empty title, or duplicate code).
func (c *Catalog) Skipped() int { return c.skipped }

// Load reads a UTF-8 JSON array of occupation records from path. The read
// fails if the file is missing or the JSON is syntactically invalid; it does
// not fail on individual bad records, which are counted and skipped.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a catalog from an in-memory JSON array, applying the same
// validation rules as Load.
func LoadBytes(data []byte) (*Catalog, error) {
	var raw []Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: invalid JSON: %w", err)
	}

	c := &Catalog{
		byCode:    make(map[string]*Record, len(raw)),
		byTitle:   make(map[string]*Record, len(raw)),
		sourceLen: len(raw),
	}

	seenCodes := make(map[string]struct{}, len(raw))
	valid := make([]Record, 0, len(raw))
	for i := range raw {
		rec := raw[i]
		if !codePattern.MatchString(rec.Code) {
			c.skipped++
			continue
		}
		if strings.TrimSpace(rec.Title) == "" {
			c.skipped++
			continue
		}
		if _, dup := seenCodes[rec.Code]; dup {
			c.skipped++
			continue
		}
		seenCodes[rec.Code] = struct{}{}
		rec.Synonyms = synonymSet(rec.Synonyms)
		valid = append(valid, rec)
	}

	// Records is fixed-capacity from here on, so pointers into it stay valid.
	c.records = valid
	for i := range c.records {
		stored := &c.records[i]
		c.byCode[stored.Code] = stored

		titleLC := strings.ToLower(stored.Title)
		if _, exists := c.byTitle[titleLC]; !exists {
			c.byTitle[titleLC] = stored
		}
	}

	return c, nil
}

// PassageText returns the text to embed for a catalog record at build time,
// following the searchable_text-if-present, else-synthesize rule.
func PassageText(r Record) string {
	if r.SearchableText != "" {
		return "passage: " + r.SearchableText
	}
	parts := []string{r.Title}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if len(r.Synonyms) > 0 {
		parts = append(parts, "Synonyms: "+strings.Join(r.Synonyms, ", "))
	}
	if len(r.Examples) > 0 {
		parts = append(parts, "Examples: "+strings.Join(r.Examples, ", "))
	}
	return "passage: " + strings.Join(parts, " ")
}
