package analyzer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Analyzer turns regulation text into index terms: lowercased words with
// stopwords and single characters dropped, optionally reduced with the
// Snowball English stemmer. Section numbers such as 712.15 survive as one
// term.
type Analyzer struct {
	stem      bool
	stopwords map[string]struct{}
}

func New(useStemming bool) *Analyzer {
	return &Analyzer{stem: useStemming, stopwords: defaultStopwords()}
}

func (a *Analyzer) Terms(text string) []string {
	words := splitWords(text)
	terms := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 2 {
			continue
		}
		if _, stop := a.stopwords[word]; stop {
			continue
		}
		if a.stem && !isNumeric(word) {
			word = english.Stem(word, false)
		}
		terms = append(terms, word)
	}
	return terms
}

// splitWords splits on anything but letters and digits. A dot between
// two digits is kept so citations stay whole.
func splitWords(text string) []string {
	runes := []rune(text)
	var words []string
	var current strings.Builder

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			current.WriteRune(r)
		default:
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// defaultStopwords is English function words plus regulatory boilerplate.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "in", "is", "it", "its", "of", "on", "or",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"any", "such", "shall", "may", "must", "which", "who", "if",
		"under", "these", "those", "been", "being", "not", "no",
		"have", "had", "but", "they", "their", "than", "each", "other",
		"what", "when", "where", "how", "does", "do", "can",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
