package store

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase terms using the fixed rule set the
// whole system depends on for reproducibility: split on any run of
// non-letter/non-digit runes, case-fold, drop tokens shorter than
// minTokenLength. No stemming, no stop words.
//
// Index and query paths must use this exact function; changing it
// invalidates every persisted sparse index.
func Tokenize(text string, minTokenLength int) []string {
	if minTokenLength < 1 {
		minTokenLength = 1
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.ToLower(f)
		if len([]rune(t)) >= minTokenLength {
			tokens = append(tokens, t)
		}
	}

	return tokens
}

// UniqueTerms returns the distinct terms of a token stream, preserving
// first-occurrence order so query scoring iterates deterministically.
func UniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}
