package domain

import (
	"fmt"
	"strings"
)

// Source identifies the document a chunk was cut from.
type Source string

const (
	SourceCFR707   Source = "10cfr707"
	SourceCFR710   Source = "10cfr710"
	SourceCFR712   Source = "10cfr712"
	SourceHandbook Source = "hrp_handbook"
)

// Sources lists every known source in display order.
var Sources = []Source{SourceCFR707, SourceCFR710, SourceCFR712, SourceHandbook}

// ParseSource validates a source tag.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: unknown source %q", ErrValidation, s)
}

// HasSubparts reports whether chunks of this source carry a subpart.
func (s Source) HasSubparts() bool {
	return s == SourceCFR712
}

// Subpart is the coarse grouping of 10 CFR 712.
type Subpart string

const (
	SubpartA Subpart = "subpart_a" // procedures, 712.1-712.25
	SubpartB Subpart = "subpart_b" // medical standards, 712.30-712.38
)

// ParseSubpart accepts "subpart_a", "a" or "A" (and the same for B).
func ParseSubpart(s string) (Subpart, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subpart_a", "a":
		return SubpartA, nil
	case "subpart_b", "b":
		return SubpartB, nil
	}
	return "", fmt.Errorf("%w: unknown subpart %q", ErrValidation, s)
}

// Ptr returns a pointer to a copy of s.
func (s Subpart) Ptr() *Subpart {
	return &s
}

// Chunk is the unit of storage and retrieval.
type Chunk struct {
	ID         string   `json:"id"`
	Source     Source   `json:"source"`
	Subpart    *Subpart `json:"subpart,omitempty"`
	Section    string   `json:"section"`
	Title      string   `json:"title"`
	Citation   string   `json:"citation"`
	Content    string   `json:"content"`
	ChunkIndex int      `json:"chunk_index"`
}

// EmbeddingText is the text sent to the embedder at ingest time.
func (c Chunk) EmbeddingText() string {
	return c.Title + "\n\n" + c.Content
}

// SubpartValue returns the subpart as a plain string, empty when absent.
func (c Chunk) SubpartValue() string {
	if c.Subpart == nil {
		return ""
	}
	return string(*c.Subpart)
}

// ChunkID derives the stable identifier of a chunk, e.g. "10cfr712:712-11:chunk-000".
func ChunkID(source Source, section string, index int) string {
	return fmt.Sprintf("%s:%s:chunk-%03d", source, strings.ReplaceAll(section, ".", "-"), index)
}

// SectionMetadata is supplied by ingestion and copied into every chunk of a section.
type SectionMetadata struct {
	Section  string
	Title    string
	Citation string
	Source   Source
}

// SearchFilter is a conjunction of equality constraints. Zero fields are unconstrained.
type SearchFilter struct {
	Source  *Source  `json:"source,omitempty"`
	Subpart *Subpart `json:"subpart,omitempty"`
	Section string   `json:"section,omitempty"`
}

// Matches reports whether c satisfies every constraint of f.
func (f SearchFilter) Matches(c Chunk) bool {
	if f.Source != nil && c.Source != *f.Source {
		return false
	}
	if f.Subpart != nil && (c.Subpart == nil || *c.Subpart != *f.Subpart) {
		return false
	}
	if f.Section != "" && c.Section != f.Section {
		return false
	}
	return true
}

// IsZero reports whether the filter constrains nothing.
func (f SearchFilter) IsZero() bool {
	return f.Source == nil && f.Subpart == nil && f.Section == ""
}

func (f SearchFilter) String() string {
	var parts []string
	if f.Source != nil {
		parts = append(parts, "source="+string(*f.Source))
	}
	if f.Subpart != nil {
		parts = append(parts, "subpart="+string(*f.Subpart))
	}
	if f.Section != "" {
		parts = append(parts, "section="+f.Section)
	}
	return strings.Join(parts, ",")
}

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
