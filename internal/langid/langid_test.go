package langid

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"english", "welding engineer", English},
		{"hindi", "वेल्डिंग करणारा", Hindi},
		{"bengali", "ওয়েল্ডার", Bengali},
		{"marathi marker", "तो शिक्षक आहे", Marathi},
		{"empty defaults to english", "", English},
		{"digits only default english", "12345", English},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.text); got != tc.want {
				t.Fatalf("Detect(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	text := "वेल्डिंग"
	first := Detect(text)
	for i := 0; i < 20; i++ {
		if got := Detect(text); got != first {
			t.Fatalf("Detect is not deterministic: got %q then %q", first, got)
		}
	}
}
