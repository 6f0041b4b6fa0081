package tokenizer

import (
	"strings"
	"sync"
	"unicode"
)

// WordTokenizer is a lossless tokenizer that needs no vocabulary file.
// Each token is a run of letters and digits, or a single other rune,
// together with the whitespace that precedes it. Decoding any slice of
// tokens concatenates their pieces, so Decode(Encode(s)[i:]) is always a
// suffix of s and re-encoding it yields the same number of tokens.
type WordTokenizer struct {
	mu     sync.RWMutex
	ids    map[string]int
	pieces []string
}

func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{ids: make(map[string]int)}
}

func (t *WordTokenizer) Encode(text string) []int {
	pieces := splitPieces(text)
	tokens := make([]int, len(pieces))
	for i, p := range pieces {
		tokens[i] = t.intern(p)
	}
	return tokens
}

func (t *WordTokenizer) Decode(tokens []int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var sb strings.Builder
	for _, id := range tokens {
		if id >= 0 && id < len(t.pieces) {
			sb.WriteString(t.pieces[id])
		}
	}
	return sb.String()
}

func (t *WordTokenizer) CountTokens(text string) int {
	return len(splitPieces(text))
}

func (t *WordTokenizer) intern(piece string) int {
	t.mu.RLock()
	id, ok := t.ids[piece]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[piece]; ok {
		return id
	}
	id = len(t.pieces)
	t.pieces = append(t.pieces, piece)
	t.ids[piece] = id
	return id
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// splitPieces cuts text into whitespace-prefixed pieces. Trailing
// whitespace with nothing after it becomes a piece of its own.
func splitPieces(text string) []string {
	var pieces []string
	runes := []rune(text)
	start := 0
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i == len(runes) {
			break
		}
		if isWordRune(runes[i]) {
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
		} else {
			i++
		}
		pieces = append(pieces, string(runes[start:i]))
		start = i
	}
	if start < len(runes) {
		pieces = append(pieces, string(runes[start:]))
	}
	return pieces
}
