package embedding

import (
	"math"
	"testing"
)

func TestDeterministicProviderIsStableAndUnitNorm(t *testing.T) {
	p := NewDeterministicProvider(16, "test-model")

	v1, err := p.Embed("passage: Welder")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := p.Embed("passage: Welder")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embedding not deterministic at index %d: %v vs %v", i, v1[i], v2[i])
		}
	}

	var sumSq float64
	for _, f := range v1 {
		sumSq += float64(f) * float64(f)
	}
	if math.Abs(sumSq-1.0) > 1e-4 {
		t.Fatalf("expected unit norm, got sum of squares %v", sumSq)
	}
}

func TestDeterministicProviderDiffersByInput(t *testing.T) {
	p := NewDeterministicProvider(16, "test-model")
	v1, _ := p.Embed("passage: Welder")
	v2, _ := p.Embed("passage: Teacher")

	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different inputs to produce different vectors")
	}
}

func TestEmbedQueryAddsPrefix(t *testing.T) {
	p := NewDeterministicProvider(8, "test-model")
	v1, _ := EmbedQuery(p, "welder")
	v2, _ := p.Embed("query: welder")
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("EmbedQuery did not apply the query prefix consistently")
		}
	}
}
