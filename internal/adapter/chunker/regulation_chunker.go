package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

// RegulationChunker splits section text into token-bounded chunks that
// break on paragraphs first, then sentences, carrying a token overlap
// between consecutive chunks.
type RegulationChunker struct {
	maxTokens     int
	overlapTokens int
	tokenizer     port.Tokenizer
}

func NewRegulationChunker(maxTokens, overlapTokens int, tokenizer port.Tokenizer) (*RegulationChunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_tokens must be > 0, got %d", domain.ErrConfig, maxTokens)
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, fmt.Errorf("%w: overlap_tokens must be >= 0 and < max_tokens (%d), got %d",
			domain.ErrConfig, maxTokens, overlapTokens)
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("%w: tokenizer is required", domain.ErrConfig)
	}
	return &RegulationChunker{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		tokenizer:     tokenizer,
	}, nil
}

func (c *RegulationChunker) MaxTokens() int     { return c.maxTokens }
func (c *RegulationChunker) OverlapTokens() int { return c.overlapTokens }

func (c *RegulationChunker) CountTokens(text string) int {
	return c.tokenizer.CountTokens(text)
}

// Chunk never fails. Text that fits the budget comes back as a single
// trimmed chunk, even when empty.
func (c *RegulationChunker) Chunk(text string, meta domain.SectionMetadata) []domain.Chunk {
	acc := &accumulator{c: c, meta: meta}
	if meta.Source.HasSubparts() {
		sp := domain.SubpartForSection(meta.Section)
		acc.subpart = &sp
	}

	if c.tokenizer.CountTokens(text) <= c.maxTokens {
		acc.emit(strings.TrimSpace(text))
		return acc.chunks
	}

	for _, para := range splitParagraphs(text) {
		if c.tokenizer.CountTokens(para) <= c.maxTokens {
			acc.add(para, paragraphSep)
			continue
		}

		acc.close()
		sep := paragraphSep
		for _, sentence := range splitSentences(para) {
			if c.tokenizer.CountTokens(sentence) <= c.maxTokens {
				acc.add(sentence, sep)
			} else {
				c.addWindows(acc, sentence, sep)
			}
			sep = sentenceSep
		}
	}
	acc.close()

	return acc.chunks
}

// addWindows feeds an unsplittable sentence as consecutive token windows
// sized so that each window plus the carried overlap fits the budget.
// Window ends are pulled back to a rune boundary because BPE tokens may
// split a multi-byte character.
func (c *RegulationChunker) addWindows(acc *accumulator, sentence, sep string) {
	tokens := c.tokenizer.Encode(sentence)
	size := c.maxTokens - c.overlapTokens
	for start := 0; start < len(tokens); {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		window, end := c.decodeWindow(tokens, start, end)
		acc.add(window, sep)
		sep = ""
		start = end
	}
}

// decodeWindow decodes tokens[start:end], shrinking end until the text is
// valid UTF-8. When no shorter window is valid (a single rune spread over
// more tokens than the window holds) the partial bytes are dropped.
func (c *RegulationChunker) decodeWindow(tokens []int, start, end int) (string, int) {
	if end == len(tokens) {
		return c.tokenizer.Decode(tokens[start:end]), end
	}
	for e := end; e > start; e-- {
		if text := c.tokenizer.Decode(tokens[start:e]); utf8.ValidString(text) {
			return text, e
		}
	}
	return strings.ToValidUTF8(c.tokenizer.Decode(tokens[start:end]), ""), end
}

// overlapTail returns the last overlapTokens tokens of text.
func (c *RegulationChunker) overlapTail(text string) []int {
	if c.overlapTokens == 0 {
		return nil
	}
	tokens := c.tokenizer.Encode(text)
	if len(tokens) > c.overlapTokens {
		tokens = tokens[len(tokens)-c.overlapTokens:]
	}
	return tokens
}

// accumulator is the running chunk buffer for one Chunk call.
type accumulator struct {
	c       *RegulationChunker
	meta    domain.SectionMetadata
	subpart *domain.Subpart

	buf    string
	carry  []int
	chunks []domain.Chunk
}

func (a *accumulator) add(unit, sep string) {
	if a.buf != "" {
		candidate := a.buf + sep + unit
		if a.c.tokenizer.CountTokens(candidate) <= a.c.maxTokens {
			a.buf = candidate
			return
		}
		a.close()
	}
	a.start(unit, sep)
}

// start seeds a fresh buffer with as much of the carried overlap as fits
// in front of unit. The unit itself is always taken.
func (a *accumulator) start(unit, sep string) {
	a.buf = unit

	tail := a.carry
	a.carry = nil
	n := len(tail)
	if room := a.c.maxTokens - a.c.tokenizer.CountTokens(unit); n > room {
		n = room
	}
	for ; n > 0; n-- {
		overlap := a.c.tokenizer.Decode(tail[len(tail)-n:])
		if !utf8.ValidString(overlap) {
			continue
		}
		candidate := overlap + sep + unit
		if a.c.tokenizer.CountTokens(candidate) <= a.c.maxTokens {
			a.buf = candidate
			return
		}
	}
}

// close emits the buffer, if any, and remembers its tail for the next chunk.
func (a *accumulator) close() {
	content := strings.TrimSpace(a.buf)
	a.buf = ""
	if content == "" {
		return
	}
	a.emit(content)
	a.carry = a.c.overlapTail(content)
}

func (a *accumulator) emit(content string) {
	index := len(a.chunks)
	var subpart *domain.Subpart
	if a.subpart != nil {
		sp := *a.subpart
		subpart = &sp
	}
	a.chunks = append(a.chunks, domain.Chunk{
		ID:         domain.ChunkID(a.meta.Source, a.meta.Section, index),
		Source:     a.meta.Source,
		Subpart:    subpart,
		Section:    a.meta.Section,
		Title:      a.meta.Title,
		Citation:   a.meta.Citation,
		Content:    content,
		ChunkIndex: index,
	})
}

// splitParagraphs splits on blank lines, keeping single newlines inside a paragraph.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks after '.', '!' or '?' when followed by whitespace.
func splitSentences(paragraph string) []string {
	var out []string
	runes := []rune(paragraph)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
