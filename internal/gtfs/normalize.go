package gtfs

import (
	"regexp"
	"strings"
)

// baySuffixRe matches the bay/platform identifier OC Transpo appends to
// station stop names (" 2A", " (B)", " O-TRAIN", " O-TRAIN WEST / OUEST", ...),
// anchored at end of string.
var baySuffixRe = regexp.MustCompile(
	`(?:(?:\s\d?[A-Z])|(?:\s\(\d?[A-Z]\)))+$|\sO-TRAIN(?:$|\s(?:WEST|EAST|NORTH|SOUTH)\s/\s(?:OUEST|EST|NORD|SUD)$)`)

// titleCaseRe picks out the letters to capitalize after lowercasing: the
// first character, letters after spaces and dashes, the letter following the
// French contraction "d'", and dotted abbreviations.
var titleCaseRe = regexp.MustCompile(
	`^(?P<start>\w)|(?:\s|-)d'(?P<d_apostrophe>\w)|\s(?P<normal_space>\w)|-(?P<dash>[^d'])|(?P<abbrev>(?:\w\.)+\w)`)

var (
	idxStart       = titleCaseRe.SubexpIndex("start")
	idxDApostrophe = titleCaseRe.SubexpIndex("d_apostrophe")
	idxNormalSpace = titleCaseRe.SubexpIndex("normal_space")
	idxDash        = titleCaseRe.SubexpIndex("dash")
)

// lightRailHints marks stop names that belong to the light-rail network and
// must keep their raw suffix.
var lightRailHints = []string{"O-TRAIN", "PARLIAMENT"}

// titleCaseFixups are applied, in order, after the regex pass. The list is
// ad-hoc by nature; extend it here rather than in code.
var titleCaseFixups = []struct{ old, new string }{
	{"Uottawa", "uOttawa"},
	{"Toh", "T.O.H."},
	{"Td ", "TD "},
	{"Ey ", "EY "},
}

// NormalizeStopName rewrites a raw GTFS stop name for display: station stops
// get their bay identifier collapsed to " stn.", then the whole name is
// title-cased.
func NormalizeStopName(raw string) string {
	return TitleCase(StripBaySuffix(strings.TrimSpace(raw)))
}

// StripBaySuffix replaces the trailing bay identifier with " stn.". Names
// containing a "/" (bilingual street pairs) or a light-rail hint are left
// untouched.
func StripBaySuffix(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	upper := strings.ToUpper(name)
	for _, hint := range lightRailHints {
		if strings.Contains(upper, hint) {
			return name
		}
	}
	return baySuffixRe.ReplaceAllString(name, " stn.")
}

// TitleCase lowercases s and re-capitalizes the first letter of each word,
// keeping "d'X" contractions lowercase-d and dotted abbreviations fully
// upper. Idempotent.
func TitleCase(s string) string {
	s = strings.ToLower(s)
	out := titleCaseRe.ReplaceAllStringFunc(s, capitalizeMatch)
	for _, f := range titleCaseFixups {
		out = strings.ReplaceAll(out, f.old, f.new)
	}
	return out
}

func capitalizeMatch(m string) string {
	groups := titleCaseRe.FindStringSubmatch(m)
	if groups == nil {
		return m
	}
	switch {
	case groups[idxDApostrophe] != "":
		// separator + "d'" stays, the letter after goes up
		return m[:len(m)-1] + strings.ToUpper(groups[idxDApostrophe])
	case groups[idxNormalSpace] != "":
		return m[:len(m)-1] + strings.ToUpper(groups[idxNormalSpace])
	case groups[idxDash] != "":
		return "-" + strings.ToUpper(groups[idxDash])
	default:
		// First character or a dotted abbreviation: both uppercase the
		// whole match.
		return strings.ToUpper(m)
	}
}
