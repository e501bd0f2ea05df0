// Package pipeline implements the multi-stage query pipeline: embed,
// vector-search, confidence-gate, synonym-expand, translate, and
// lexical-fallback, with a single annotation pass at the end.
package pipeline

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/occsearch/engine/internal/catalog"
	"github.com/occsearch/engine/internal/embedding"
	"github.com/occsearch/engine/internal/lexical"
	"github.com/occsearch/engine/internal/langid"
	"github.com/occsearch/engine/internal/snapshot"
	"github.com/occsearch/engine/internal/vectorindex"
)

// Result is one annotated hit returned to the caller.
type Result struct {
	Code            string   `json:"code"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Score           float64  `json:"score"`
	Confidence      float64  `json:"confidence"`
	MatchedSynonyms []string `json:"matched_synonyms"`
}

// Response is the full outcome of one Search call.
type Response struct {
	Results      []Result `json:"results"`
	LowConfidence bool    `json:"low_confidence"`
	Language     string   `json:"language"`
	Translated   bool     `json:"translated"`
	Suggestions  []string `json:"suggestions,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// HierarchyFilter restricts Stage A candidates to a division and/or minor
// group. A nil pointer field means "no filter on this dimension".
type HierarchyFilter struct {
	DivisionCode   *string
	MinorGroupCode *string
}

func (f HierarchyFilter) matches(rec catalog.Record) bool {
	if f.DivisionCode == nil && f.MinorGroupCode == nil {
		return true
	}
	if rec.Hierarchy == nil {
		return false
	}
	if f.DivisionCode != nil && rec.Hierarchy.DivisionCode != *f.DivisionCode {
		return false
	}
	if f.MinorGroupCode != nil && rec.Hierarchy.MinorGroupCode != *f.MinorGroupCode {
		return false
	}
	return true
}

// Translator is the external collaborator boundary for Stage C: it accepts a
// query and the detected source language and returns an English translation.
// This package does not implement translation; a no-op implementation is
// used when disabled or unconfigured.
type Translator interface {
	Translate(ctx context.Context, query, sourceLanguage string) (string, bool)
}

// NoOpTranslator never translates; Stage C becomes a no-op when configured
// with it.
type NoOpTranslator struct{}

func (NoOpTranslator) Translate(context.Context, string, string) (string, bool) { return "", false }

// Request is the input to one Search call.
type Request struct {
	Query    string
	K        int
	Language string // empty triggers detection
	Filter   HierarchyFilter
}

// Pipeline wires the snapshot manager, embedding provider, synonym bank, and
// translator together into the Stage A-D search algorithm.
type Pipeline struct {
	Snapshots       *snapshot.Manager
	Embedder        embedding.Provider
	SynonymBank     SynonymBank
	Translator      Translator
	Thresholds      Thresholds
	EnableTranslation bool
}

// candidate is an internal working result before final trimming/annotation.
type candidate struct {
	ordinal    int
	rec        catalog.Record
	score      float64
	confidence float64
	origin     string // "vector", "keyword", "fuzzy"
}

// Search runs the full Stage A-D pipeline against the current snapshot.
func (p *Pipeline) Search(ctx context.Context, req Request) (Response, error) {
	snap := p.Snapshots.Current()
	if snap == nil {
		return Response{}, ErrNoSnapshot
	}

	language := req.Language
	if language == "" {
		language = langid.Detect(req.Query)
	}

	best, err := p.stageA(snap, req.Query, req.K, req.Filter)
	if err != nil {
		return Response{}, err
	}

	translated := false

	if !p.Thresholds.topConfidenceAtLeast(best, 0.5) {
		if expanded := p.stageB(ctx, snap, req, best); expanded != nil {
			best = expanded
		}
	}

	if p.EnableTranslation && language != langid.English && p.belowGate(best) {
		if rescued, ok := p.stageC(ctx, snap, req, language, best); ok {
			best = rescued
			translated = true
		}
	}

	if topRawSimilarity(best) < 0.3 {
		best = p.stageD(snap, req.Query, best, req.K)
	}

	if len(best) > req.K {
		best = best[:req.K]
	}

	results := annotate(best, req.Query)
	lowConf := p.Thresholds.IsLowConfidence(results)

	resp := Response{
		Results:       results,
		LowConfidence: lowConf,
		Language:      language,
		Translated:    translated,
	}
	return resp, nil
}

func (t Thresholds) topConfidenceAtLeast(cands []candidate, v float64) bool {
	if len(cands) == 0 {
		return false
	}
	return cands[0].confidence >= v
}

func (p *Pipeline) belowGate(cands []candidate) bool {
	if len(cands) == 0 {
		return true
	}
	return cands[0].score < p.Thresholds.LowConfTopSim || cands[0].confidence < p.Thresholds.LowConfSoftmax
}

func topRawSimilarity(cands []candidate) float64 {
	if len(cands) == 0 {
		return 0
	}
	return cands[0].score
}

// stageA embeds "query: "+query, fetches 3k candidates from the vector
// index, drops entries failing the hierarchy filter, keeps the first k, and
// assigns softmax confidences over that retained, filtered set.
func (p *Pipeline) stageA(snap *snapshot.Snapshot, query string, k int, filter HierarchyFilter) ([]candidate, error) {
	vec, err := embedding.EmbedQuery(p.Embedder, query)
	if err != nil {
		return nil, err
	}
	raw, err := snap.VectorIndex.Search(vec, 3*k)
	if err != nil {
		return nil, err
	}

	records := snap.Catalog.Records()
	filtered := make([]candidate, 0, len(raw))
	for _, r := range raw {
		if r.Ordinal < 0 || r.Ordinal >= len(records) {
			continue
		}
		rec := records[r.Ordinal]
		if !filter.matches(rec) {
			continue
		}
		filtered = append(filtered, candidate{
			ordinal: r.Ordinal,
			rec:     rec,
			score:   float64(r.Similarity),
			origin:  "vector",
		})
		if len(filtered) == k {
			break
		}
	}

	applySoftmax(filtered)
	return filtered, nil
}

func applySoftmax(cands []candidate) {
	if len(cands) == 0 {
		return
	}
	maxScore := cands[0].score
	for _, c := range cands {
		if c.score > maxScore {
			maxScore = c.score
		}
	}
	var sum float64
	exps := make([]float64, len(cands))
	for i, c := range cands {
		e := math.Exp(c.score - maxScore)
		exps[i] = e
		sum += e
	}
	for i := range cands {
		cands[i].confidence = exps[i] / sum
	}
}

// stageB tries each synonym-expanded query variant through Stage A and keeps
// whichever result set has the highest top raw similarity, including the
// original if no variant beats it.
func (p *Pipeline) stageB(ctx context.Context, snap *snapshot.Snapshot, req Request, current []candidate) []candidate {
	if p.SynonymBank == nil {
		return nil
	}
	variants := p.SynonymBank.Expand(req.Query)
	if len(variants) == 0 {
		return nil
	}

	best := current
	bestScore := topRawSimilarity(current)
	for _, variant := range variants {
		select {
		case <-ctx.Done():
			return best
		default:
		}
		cands, err := p.stageA(snap, variant, req.K, req.Filter)
		if err != nil {
			continue
		}
		if s := topRawSimilarity(cands); s > bestScore {
			best = cands
			bestScore = s
		}
	}
	return best
}

// stageC translates the query to English and retries Stage A, adopting the
// translated result set only if it strictly improves the top raw similarity.
func (p *Pipeline) stageC(ctx context.Context, snap *snapshot.Snapshot, req Request, language string, current []candidate) ([]candidate, bool) {
	if p.Translator == nil {
		return current, false
	}
	translated, ok := p.Translator.Translate(ctx, req.Query, language)
	if !ok || translated == "" {
		return current, false
	}
	cands, err := p.stageA(snap, translated, req.K, req.Filter)
	if err != nil {
		return current, false
	}
	if topRawSimilarity(cands) > topRawSimilarity(current) {
		return cands, true
	}
	return current, false
}

// stageD merges keyword and fuzzy-title fallback candidates into the
// existing ordered result set without duplicating codes.
func (p *Pipeline) stageD(snap *snapshot.Snapshot, query string, current []candidate, k int) []candidate {
	seen := make(map[string]struct{}, len(current))
	for _, c := range current {
		seen[c.rec.Code] = struct{}{}
	}

	merged := append([]candidate{}, current...)

	for _, c := range keywordFallback(snap, query) {
		if _, dup := seen[c.rec.Code]; dup {
			continue
		}
		seen[c.rec.Code] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range fuzzyTitleFallback(snap, query) {
		if _, dup := seen[c.rec.Code]; dup {
			continue
		}
		seen[c.rec.Code] = struct{}{}
		merged = append(merged, c)
	}

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// keywordFallback tokenizes query into >=3-letter words, sums per-record
// inverted-index matches, ranks descending with ties broken by code
// ascending, and assigns the sentinel confidence/score pair.
func keywordFallback(snap *snapshot.Snapshot, query string) []candidate {
	tokens := lexical.Words(query)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, tok := range tokens {
		for _, code := range snap.Lexical.Inverted[tok] {
			counts[code]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})

	out := make([]candidate, 0, len(codes))
	for _, code := range codes {
		rec, ok := snap.Catalog.ByCode(code)
		if !ok {
			continue
		}
		out = append(out, candidate{
			rec:        rec,
			score:      float64(counts[code]),
			confidence: 0.25,
			origin:     "keyword",
		})
	}
	return out
}

// fuzzyTitleFallback ranks titles by a Levenshtein-derived similarity ratio
// against the lowercased query, keeping ratio >= 0.6, top 5, descending.
func fuzzyTitleFallback(snap *snapshot.Snapshot, query string) []candidate {
	matches := titleMatches(snap, query, 0.6, 5)
	out := make([]candidate, len(matches))
	for i, m := range matches {
		out[i] = candidate{rec: m.rec, score: 0, confidence: 0.20, origin: "fuzzy"}
	}
	return out
}

type titleMatch struct {
	rec   catalog.Record
	ratio float64
}

// titleMatches ranks every catalog title by similarity ratio to query,
// keeping ratio >= minRatio, top max, descending (ties by code ascending).
func titleMatches(snap *snapshot.Snapshot, query string, minRatio float64, max int) []titleMatch {
	lowerQ := strings.ToLower(query)
	var matches []titleMatch
	for _, rec := range snap.Catalog.Records() {
		ratio := titleRatio(lowerQ, strings.ToLower(rec.Title))
		if ratio >= minRatio {
			matches = append(matches, titleMatch{rec: rec, ratio: ratio})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ratio != matches[j].ratio {
			return matches[i].ratio > matches[j].ratio
		}
		return matches[i].rec.Code < matches[j].rec.Code
	})
	if len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// FuzzyTitleSuggestions returns up to max catalog titles whose similarity
// ratio to query is at least minRatio, most similar first. It backs the
// low-confidence "suggestions"/"alternatives" annotations a caller may
// surface alongside a Response.
func FuzzyTitleSuggestions(snap *snapshot.Snapshot, query string, minRatio float64, max int) []string {
	matches := titleMatches(snap, query, minRatio, max)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.rec.Title
	}
	return out
}

func titleRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// annotate produces the final client-facing Result list, computing
// matched_synonyms for each candidate from the final (post-merge) set.
func annotate(cands []candidate, query string) []Result {
	lowerQ := strings.ToLower(query)
	out := make([]Result, len(cands))
	for i, c := range cands {
		out[i] = Result{
			Code:            c.rec.Code,
			Title:           c.rec.Title,
			Description:     c.rec.Description,
			Score:           c.score,
			Confidence:      c.confidence,
			MatchedSynonyms: matchedSynonyms(c.rec, lowerQ),
		}
	}
	return out
}

func matchedSynonyms(rec catalog.Record, lowerQuery string) []string {
	var matched []string
	lowerTitle := strings.ToLower(rec.Title)
	if strings.Contains(lowerTitle, lowerQuery) {
		matched = append(matched, rec.Title)
	}
	for _, syn := range rec.Synonyms {
		if len(matched) >= 3 {
			break
		}
		lowerSyn := strings.ToLower(syn)
		if strings.Contains(lowerSyn, lowerQuery) || strings.Contains(lowerQuery, lowerSyn) {
			matched = append(matched, syn)
		}
	}
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return matched
}
