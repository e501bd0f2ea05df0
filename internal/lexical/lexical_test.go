package lexical

import (
	"reflect"
	"testing"

	"github.com/occsearch/engine/internal/catalog"
)

func TestWordsFiltersShortAndNonAlpha(t *testing.T) {
	got := Words("Arc-Welder #2, IT professional")
	want := []string{"arc", "welder", "professional"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBuildInvertsTitlesAndSynonyms(t *testing.T) {
	records := []catalog.Record{
		{Code: "7212.0100", Title: "Welder", Synonyms: []string{"arc welder"}},
		{Code: "2330.0100", Title: "Teacher", Synonyms: []string{"welder trainer"}},
	}
	idx := Build(records)

	codes := idx.Inverted["welder"]
	if len(codes) != 2 || codes[0] != "2330.0100" || codes[1] != "7212.0100" {
		t.Fatalf("expected both codes sorted, got %v", codes)
	}
	if got := idx.Inverted["arc"]; len(got) != 1 || got[0] != "7212.0100" {
		t.Fatalf("unexpected arc entry: %v", got)
	}
}

func TestBuildDeduplicatesPerCode(t *testing.T) {
	records := []catalog.Record{
		{Code: "1111.0001", Title: "Welder welding welder", Synonyms: []string{"welder"}},
	}
	idx := Build(records)
	if got := idx.Inverted["welder"]; len(got) != 1 {
		t.Fatalf("expected single code entry despite repeats, got %v", got)
	}
}
