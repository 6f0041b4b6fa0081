package ecfr

import (
	"fmt"
	"log/slog"
	"strings"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// Sequence tries parsers in order and keeps the first that finds any
// sections. The section count is the only confidence signal.
type Sequence struct {
	parsers []port.SectionParser
	logger  *slog.Logger
}

var _ port.SectionParser = (*Sequence)(nil)

func NewSequence(logger *slog.Logger, parsers ...port.SectionParser) *Sequence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequence{parsers: parsers, logger: logger.With(slog.String("component", "parser"))}
}

// NewPartParser is the XML parser with the regex fallback for one part.
func NewPartParser(part Part, logger *slog.Logger) *Sequence {
	return NewSequence(logger, XMLParser{Part: part}, RegexParser{Part: part})
}

func (s *Sequence) Name() string {
	names := make([]string, len(s.parsers))
	for i, p := range s.parsers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (s *Sequence) Parse(raw string) ([]port.Section, error) {
	for _, p := range s.parsers {
		sections, err := p.Parse(raw)
		if err != nil {
			s.logger.Warn("parser failed, trying next", slog.String("parser", p.Name()), slog.Any("error", err))
			continue
		}
		if len(sections) > 0 {
			s.logger.Info("parsed sections", slog.String("parser", p.Name()), slog.Int("sections", len(sections)))
			return sections, nil
		}
		s.logger.Debug("parser found no sections", slog.String("parser", p.Name()))
	}
	return nil, fmt.Errorf("%w: no sections found", domain.ErrIngest)
}
