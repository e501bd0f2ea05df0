// Package langid classifies a query string into one of the four language
// tags the pipeline understands, deterministically and without any
// statistical model (the source system's detector is randomized and must be
// seeded for reproducibility; this classifier has no randomness to seed).
package langid

import (
	"strings"
	"unicode"
)

const (
	English  = "en"
	Hindi    = "hi"
	Bengali  = "bn"
	Marathi  = "mr"
)

// marathiMarkers are function words distinctive enough to prefer a Marathi
// classification over the Hindi default for Devanagari-script text. This is
// a narrow heuristic, not a general-purpose Marathi/Hindi discriminator.
var marathiMarkers = []string{"आहे", "मध्ये", "आणि", "होते", "नाही"}

// Detect maps free text to one of {en, hi, bn, mr} by scanning for the
// dominant Unicode script among its letters. Anything without a recognized
// non-Latin script defaults to en. The result is a pure function of the
// input: no randomness, no external state.
func Detect(text string) string {
	var devanagari, bengali, other int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case unicode.Is(unicode.Bengali, r):
			bengali++
		case unicode.IsLetter(r):
			other++
		}
	}

	switch {
	case devanagari == 0 && bengali == 0:
		return English
	case bengali >= devanagari:
		return Bengali
	default:
		for _, marker := range marathiMarkers {
			if strings.Contains(text, marker) {
				return Marathi
			}
		}
		return Hindi
	}
}
