package summarize

import (
	"fmt"
	"regexp"
)

// SignalRule awards Points to a sentence that matches Pattern.
type SignalRule struct {
	Name    string
	Points  int
	Pattern *regexp.Regexp
}

// SentenceSignals favour sentences that carry dates, figures and names.
var SentenceSignals = []SignalRule{
	{Name: "year", Points: 3, Pattern: regexp.MustCompile(`\b\d{4}\b`)},
	{Name: "percentage", Points: 2, Pattern: regexp.MustCompile(`\b\d+(?:\.\d+)?%`)},
	{Name: "grouped number", Points: 2, Pattern: regexp.MustCompile(`\b\d+(?:,\d{3})+\b`)},
	{Name: "capitalized word", Points: 1, Pattern: regexp.MustCompile(`\b[A-Z][a-z]+\b`)},
}

// ConflictRules tune numeric conflict detection. A keyword is an alphabetic
// token of at least MinKeywordLen letters followed within Window non-digit
// characters by a year, grouped number, percentage or decimal.
type ConflictRules struct {
	Window        int
	MinKeywordLen int
	MaxReported   int
}

var DefaultConflictRules = ConflictRules{Window: 10, MinKeywordLen: 4, MaxReported: 2}

func (r ConflictRules) withDefaults() ConflictRules {
	if r.Window < 0 {
		r.Window = DefaultConflictRules.Window
	}
	if r.MinKeywordLen <= 0 {
		r.MinKeywordLen = DefaultConflictRules.MinKeywordLen
	}
	if r.MaxReported <= 0 {
		r.MaxReported = DefaultConflictRules.MaxReported
	}
	return r
}

func (r ConflictRules) pattern() *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		`\b([A-Za-z][A-Za-z\-]{%d,})[^\d]{0,%d}(\d+(?:\.\d+)?%%|(?:\d+(?:,\d{3})+|\d{4}|\d+\.\d+)\b)`,
		r.MinKeywordLen-1, r.Window,
	))
}

var citationMarker = regexp.MustCompile(`\[[^\]]+\]`)
