package gtfs

import (
	"strings"
	"testing"
)

func TestStripBaySuffix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single bay letter", "BAYSHORE A", "BAYSHORE stn."},
		{"digit and letter", "BAYSHORE 2A", "BAYSHORE stn."},
		{"parenthesized bay", "TUNNEY'S PASTURE (B)", "TUNNEY'S PASTURE stn."},
		{"stacked bays", "HURDMAN 1A 2B", "HURDMAN stn."},
		{"no suffix", "LAURIER", "LAURIER"},
		{"slash name untouched", "BANK / SOMERSET 1A", "BANK / SOMERSET 1A"},
		{"o-train hint untouched", "BAYVIEW O-TRAIN", "BAYVIEW O-TRAIN"},
		{"parliament untouched", "PARLIAMENT / PARLEMENT", "PARLIAMENT / PARLEMENT"},
		{"suffix not at end untouched", "2A BAYSHORE", "2A BAYSHORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripBaySuffix(tt.input); got != tt.want {
				t.Errorf("StripBaySuffix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBaySuffixPatternVariants(t *testing.T) {
	// The O-TRAIN alternation of the suffix pattern, exercised directly: the
	// hint check normally shields these names, but the pattern itself must
	// match all documented shapes.
	for _, s := range []string{
		"BAYVIEW O-TRAIN",
		"GREENBORO O-TRAIN WEST / OUEST",
		"BAYVIEW O-TRAIN NORTH / NORD",
	} {
		if !baySuffixRe.MatchString(s) {
			t.Errorf("suffix pattern did not match %q", s)
		}
	}
	if baySuffixRe.MatchString("CARLING O-TRAINED") {
		t.Error("suffix pattern matched a non-suffix O-TRAIN substring")
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain words", "BAYSHORE STN.", "Bayshore Stn."},
		{"already cased", "Bayshore Stn.", "Bayshore Stn."},
		{"dashed word", "VANIER-NORTH", "Vanier-North"},
		{"french contraction", "PROMENADE D'ORLEANS", "Promenade d'Orleans"},
		{"abbreviation", "T.O.H. CIVIC", "T.O.H. Civic"},
		{"uottawa fixup", "UOTTAWA", "uOttawa"},
		{"td fixup", "TD PLACE", "TD Place"},
		{"ey fixup", "EY CENTRE", "EY Centre"},
		{"toh fixup", "TOH", "T.O.H."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleCase(tt.input); got != tt.want {
				t.Errorf("TitleCase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitleCaseIdempotent(t *testing.T) {
	inputs := []string{
		"BAYSHORE STN.",
		"PROMENADE D'ORLEANS",
		"T.O.H. CIVIC",
		"UOTTAWA",
		"TD PLACE",
		"EY CENTRE",
		"BANK / SOMERSET",
		"ST-LAURENT 2B",
	}
	for _, s := range inputs {
		once := TitleCase(s)
		twice := TitleCase(once)
		if once != twice {
			t.Errorf("TitleCase not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestNormalizeStopName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"BAYSHORE 2A", "Bayshore Stn."},
		{"TUNNEY'S PASTURE (B)", "Tunney's Pasture Stn."},
		{"BANK / SOMERSET", "Bank / Somerset"},
		{"LAURIER", "Laurier"},
	}
	for _, tt := range tests {
		if got := NormalizeStopName(tt.input); got != tt.want {
			t.Errorf("NormalizeStopName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuffixNormalizationEndsWithStn(t *testing.T) {
	// Every name the suffix pattern matches, minus the light-rail
	// exceptions, must come out of StripBaySuffix ending in " stn.".
	candidates := []string{
		"BAYSHORE 2A",
		"HURDMAN (A)",
		"BLAIR 1B 2C",
		"SOUTH KEYS C",
	}
	for _, s := range candidates {
		got := StripBaySuffix(s)
		if !strings.HasSuffix(got, " stn.") {
			t.Errorf("StripBaySuffix(%q) = %q, want trailing \" stn.\"", s, got)
		}
	}
}
