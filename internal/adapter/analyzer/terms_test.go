package analyzer

import (
	"reflect"
	"testing"
)

func TestTermsWithStemming(t *testing.T) {
	terms := New(true).Terms("Random drug testing of the candidates")
	expected := []string{"random", "drug", "test", "candid"}
	if !reflect.DeepEqual(terms, expected) {
		t.Errorf("expected %v, got %v", expected, terms)
	}
}

func TestTermsWithoutStemming(t *testing.T) {
	terms := New(false).Terms("Random drug testing")
	expected := []string{"random", "drug", "testing"}
	if !reflect.DeepEqual(terms, expected) {
		t.Errorf("expected %v, got %v", expected, terms)
	}
}

func TestTermsDropsStopwordsAndShortWords(t *testing.T) {
	for _, term := range New(false).Terms("a I go to the HRP") {
		if len(term) < 2 || term == "the" || term == "to" {
			t.Errorf("unexpected term %q", term)
		}
	}
	if terms := New(true).Terms(""); len(terms) != 0 {
		t.Errorf("expected no terms for empty input, got %v", terms)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"HRP-certified", []string{"HRP", "certified"}},
		{"see § 712.15(a).", []string{"see", "712.15", "a"}},
		{"end of sentence. Next", []string{"end", "of", "sentence", "Next"}},
		{"10 CFR 712", []string{"10", "CFR", "712"}},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if !reflect.DeepEqual(words, tt.expected) {
			t.Errorf("splitWords(%q) = %v, want %v", tt.input, words, tt.expected)
		}
	}
}

func TestSectionNumbersAreNotStemmed(t *testing.T) {
	terms := New(true).Terms("712.15")
	if len(terms) != 1 || terms[0] != "712.15" {
		t.Errorf("expected section number kept whole, got %v", terms)
	}
}

func TestStemmedTerms(t *testing.T) {
	tests := map[string]string{
		"testing":        "test",
		"tests":          "test",
		"evaluations":    "evalu",
		"organizational": "organiz",
		"reliability":    "reliabl",
		"candidates":     "candid",
	}
	a := New(true)
	for word, want := range tests {
		terms := a.Terms(word)
		if len(terms) != 1 || terms[0] != want {
			t.Errorf("Terms(%q) = %v, want [%s]", word, terms, want)
		}
	}
}

func TestStemmingConflatesInflections(t *testing.T) {
	a := New(true)
	left := a.Terms("evaluate the evaluations")
	if len(left) != 2 || left[0] != left[1] {
		t.Errorf("expected both forms to share a stem, got %v", left)
	}
}
