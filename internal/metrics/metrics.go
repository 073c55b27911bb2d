// Package metrics provides transcription and intent accuracy measurements.
package metrics

import (
	"strings"

	"github.com/rhea-voice/rhea/internal/intent"
)

// Levenshtein returns the word-level edit distance between two token
// sequences with unit cost for insertion, deletion, and substitution.
func Levenshtein(a, b []string) int {
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

// WER returns the word error rate of hypothesis against reference as a
// percentage. An empty reference yields 0 by convention.
func WER(reference, hypothesis string) float64 {
	ref := strings.Fields(strings.ToLower(reference))
	hyp := strings.Fields(strings.ToLower(hypothesis))
	if len(ref) == 0 {
		return 0
	}
	return float64(Levenshtein(ref, hyp)) / float64(len(ref)) * 100
}

// IntentsMatch compares an actual intent against an expected one. Type and
// action must match exactly; track and bar are compared only when the
// expected intent sets them, so a nil expected field means don't-care.
func IntentsMatch(expected, actual *intent.Intent) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	if expected.Type != actual.Type || expected.Action != actual.Action {
		return false
	}
	if expected.Track != nil {
		if actual.Track == nil || *actual.Track != *expected.Track {
			return false
		}
	}
	if expected.Bar != nil {
		if actual.Bar == nil || *actual.Bar != *expected.Bar {
			return false
		}
	}
	return true
}
