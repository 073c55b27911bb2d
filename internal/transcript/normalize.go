// Package transcript normalizes recognized utterances for intent matching.
package transcript

import (
	"strconv"
	"strings"
)

// Normalize lowercases an utterance, strips trailing punctuation from each
// word, and collapses runs of whitespace to single spaces.
func Normalize(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	cleaned := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, ".,!?;:")
		if field == "" {
			continue
		}
		cleaned = append(cleaned, field)
	}
	return strings.Join(cleaned, " ")
}

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20,
}

// NumberWord resolves a spelled-out number to its integer value.
func NumberWord(word string) (int, bool) {
	n, ok := numberWords[strings.ToLower(strings.TrimSpace(word))]
	return n, ok
}

// ReplaceNumberWords rewrites spelled-out numbers as digits so downstream
// pattern rules only need to match one numeric form.
func ReplaceNumberWords(normalized string) string {
	fields := strings.Fields(normalized)
	for i, field := range fields {
		if n, ok := numberWords[field]; ok {
			fields[i] = strconv.Itoa(n)
		}
	}
	return strings.Join(fields, " ")
}
