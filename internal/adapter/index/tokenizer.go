package index

import (
	"strings"
	"unicode"
)

const fuzzyPrefixRunes = 5

// Tokenize lowercases the text and splits it into letter/digit runs of at
// least two runes. Works on Russian and Latin prose alike.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// termFrequencies counts token occurrences across the given texts.
func termFrequencies(texts ...string) map[string]int {
	tf := make(map[string]int)
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			tf[tok]++
		}
	}
	return tf
}

// fuzzyPrefix returns the prefix used for approximate term matching, or ""
// when the token is too short to match fuzzily.
func fuzzyPrefix(token string) string {
	runes := []rune(token)
	if len(runes) <= fuzzyPrefixRunes {
		return ""
	}
	return string(runes[:fuzzyPrefixRunes])
}
