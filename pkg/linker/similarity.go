package linker

import (
	"regexp"
	"strings"
)

// Street-suffix abbreviations expanded during canonicalization so that
// "Main St" and "Main Street" compare as equal tokens.
var streetAbbreviations = map[string]string{
	"st":   "street",
	"rd":   "road",
	"ave":  "avenue",
	"av":   "avenue",
	"ln":   "lane",
	"dr":   "drive",
	"cl":   "close",
	"cres": "crescent",
	"ct":   "court",
	"gdns": "gardens",
	"pl":   "place",
	"sq":   "square",
	"ter":  "terrace",
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9 ]+`)

// canonicalAddress lowercases, strips punctuation, collapses whitespace,
// and expands street abbreviations.
func canonicalAddress(addr string) string {
	s := strings.ToLower(addr)
	s = nonAlphanumeric.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if full, ok := streetAbbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

// Similarity returns a score in [0,1] for two addresses: 1 minus the
// Levenshtein distance between their canonical forms, normalized by the
// longer length. Monotonic in edit distance, so a closer address never
// scores lower than a more distant one.
func Similarity(a, b string) float64 {
	ca, cb := canonicalAddress(a), canonicalAddress(b)
	if ca == "" && cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}

	longest := max(len(ca), len(cb))
	return 1 - float64(levenshtein(ca, cb))/float64(longest)
}

// levenshtein computes the edit distance between two strings using
// two-row dynamic programming. Inputs are canonical addresses, which
// are ASCII-only after canonicalAddress, so byte indexing is exact.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

var postcodePattern = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d{1,2}[A-Z]?)\s*(\d[A-Z]{2})\b`)

// NormalizePostcode uppercases and strips all whitespace. Returns ""
// when the input does not contain a recognizable UK postcode.
func NormalizePostcode(s string) string {
	match := postcodePattern.FindStringSubmatch(s)
	if match == nil {
		return ""
	}
	return strings.ToUpper(match[1] + match[2])
}
