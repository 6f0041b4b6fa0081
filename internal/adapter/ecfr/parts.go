package ecfr

import (
	"fmt"
	"regexp"
	"sort"

	"hrprag/internal/domain"
)

// Part describes one CFR part of title 10 that can be ingested.
type Part struct {
	Number string
	Name   string
	Source domain.Source
	// Sections lists the known section titles. When set, sections outside
	// it are skipped.
	Sections map[string]string
}

// hrpSections are the sections of 10 CFR 712 with their official titles.
var hrpSections = map[string]string{
	"712.1":  "Purpose",
	"712.2":  "Scope",
	"712.3":  "Definitions",
	"712.10": "Designation of HRP positions",
	"712.11": "General requirements for HRP certification",
	"712.12": "HRP recertification",
	"712.13": "Medical assessment",
	"712.14": "Supervisory review",
	"712.15": "Drug and alcohol testing",
	"712.16": "Management evaluation",
	"712.17": "DOE security review",
	"712.18": "Transferring HRP certification",
	"712.19": "Temporary removal from HRP",
	"712.20": "Removal from HRP",
	"712.21": "Reinstatement",
	"712.22": "Request for reconsideration",
	"712.23": "Administrative review",
	"712.24": "Administrative Judge",
	"712.25": "Secretary review",
	"712.30": "Medical standards - general",
	"712.31": "Application of medical standards",
	"712.32": "Physical examination",
	"712.33": "Designated Physician",
	"712.34": "Psychological evaluation",
	"712.35": "Return to work evaluation",
	"712.36": "Medical disqualification",
	"712.37": "Medical removal protection",
	"712.38": "Medical records",
}

var Parts = map[string]Part{
	"707": {
		Number: "707",
		Name:   "Workplace Substance Abuse Programs at DOE Sites",
		Source: domain.SourceCFR707,
	},
	"710": {
		Number: "710",
		Name:   "Criteria and Procedures for Determining Eligibility for Access to Classified Matter or Special Nuclear Material",
		Source: domain.SourceCFR710,
	},
	"712": {
		Number:   "712",
		Name:     "Human Reliability Program",
		Source:   domain.SourceCFR712,
		Sections: hrpSections,
	},
}

// LookupPart returns a supported part by number.
func LookupPart(number string) (Part, error) {
	p, ok := Parts[number]
	if !ok {
		return Part{}, fmt.Errorf("%w: unsupported CFR part %q (supported: %v)", domain.ErrValidation, number, PartNumbers())
	}
	return p, nil
}

func PartNumbers() []string {
	out := make([]string, 0, len(Parts))
	for n := range Parts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Wanted reports whether section belongs to the ingested set.
func (p Part) Wanted(section string) bool {
	if p.Sections == nil {
		return true
	}
	_, ok := p.Sections[section]
	return ok
}

// KnownTitle returns the table title for section, if any.
func (p Part) KnownTitle(section string) string {
	return p.Sections[section]
}

func (p Part) Citation(section string) string {
	return "10 CFR " + section
}

// sectionPattern matches "712.15" inside "§ 712.15" but not inside "1712.15".
func (p Part) sectionPattern() *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(p.Number) + `\.(\d+)`)
}

func (p Part) meta(section, title string) domain.SectionMetadata {
	if title == "" {
		title = p.KnownTitle(section)
	}
	return domain.SectionMetadata{
		Section:  section,
		Title:    title,
		Citation: p.Citation(section),
		Source:   p.Source,
	}
}
