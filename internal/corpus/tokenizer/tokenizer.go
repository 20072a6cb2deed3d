// Package tokenizer turns raw text into the normalised terms that populate a
// document's token registry. It lower-cases input, splits on non-alphanumeric
// boundaries and optionally applies a simple suffix-based stemmer. Common
// words are kept: filtering them is a scoring decision, not a tokenising one.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Options controls tokenisation.
type Options struct {
	Stem bool
}

// Normalize lower-cases and trims a single term the same way Tokenize does,
// without stemming.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Tokenize breaks text into a slice of lowercased Tokens.
func Tokenize(text string, opts Options) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		term := word
		if opts.Stem {
			term = Stem(word)
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
	}
	return tokens
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Stem applies a suffix-stripping stemmer to a lowercased word. The first
// matching rule wins; a rule is skipped when it would leave fewer than
// minLen characters.
func Stem(word string) string {
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
