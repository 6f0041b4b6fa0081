package port

import "hrprag/internal/domain"

// Section is one logical document unit produced by ingestion.
type Section struct {
	Meta domain.SectionMetadata
	Text string
}

// SectionParser turns a raw source document into sections. The number of
// sections returned is the parser's confidence signal.
type SectionParser interface {
	Name() string
	Parse(raw string) ([]Section, error)
}
