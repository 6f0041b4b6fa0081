package port

// Tokenizer counts tokens and round-trips token slices back to text.
// Decode of any contiguous subsequence of Encode(s) should yield the
// matching substring of s.
type Tokenizer interface {
	Encode(text string) []int

	Decode(tokens []int) string

	CountTokens(text string) int
}
