// Package textutil provides text processing utilities for feature extraction.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tokenizeRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize extracts word tokens from text (Unicode-aware, like \b\w+\b).
func Tokenize(text string) []string {
	return tokenizeRe.FindAllString(text, -1)
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’.\-][\p{L}\p{N}_]+)*|\pP`)

// Words splits running text into words and punctuation marks. Internal
// apostrophes, hyphens and dots stay inside the word ("don't", "U.S").
func Words(text string) []string {
	return wordRe.FindAllString(norm.NFKC.String(text), -1)
}

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize applies NFKC compatibility folding, lowercases text and
// normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(norm.NFKC.String(text)))
}

var shapeRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`[A-Z]+`), "A"},
	{regexp.MustCompile(`[a-z]+`), "a"},
	{regexp.MustCompile(`[0-9]+`), "0"},
	{regexp.MustCompile(`\pP+`), "."},
}

// WordShape collapses runs of upper case letters to "A", lower case letters
// to "a", digits to "0" and punctuation to ".". Other characters are kept:
// "McDonald's" -> "AaAa.a", "1990s" -> "0a".
func WordShape(word string) string {
	for _, r := range shapeRules {
		word = r.re.ReplaceAllString(word, r.repl)
	}
	return word
}
