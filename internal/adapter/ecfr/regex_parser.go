package ecfr

import (
	"regexp"
	"strings"

	"hrprag/internal/port"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// RegexParser is the fallback for documents the XML parser cannot read:
// it scans for "§ 712.N Title" headers and takes the text up to the next
// section sign reference as the body, stripped of tags.
type RegexParser struct {
	Part Part
}

var _ port.SectionParser = RegexParser{}

func (p RegexParser) Name() string { return "regex" }

func (p RegexParser) Parse(raw string) ([]port.Section, error) {
	num := regexp.QuoteMeta(p.Part.Number)
	header := regexp.MustCompile(`§\s*` + num + `\.(\d+)\s+([^\n]+)\n`)
	boundary := regexp.MustCompile(`§\s*` + num + `\.\d+`)

	var sections []port.Section
	index := make(map[string]int)

	pos := 0
	for pos < len(raw) {
		m := header.FindStringSubmatchIndex(raw[pos:])
		if m == nil {
			break
		}
		bodyStart := pos + m[1]
		bodyEnd := len(raw)
		if b := boundary.FindStringIndex(raw[bodyStart:]); b != nil {
			bodyEnd = bodyStart + b[0]
		}

		number := p.Part.Number + "." + raw[pos+m[2]:pos+m[3]]
		title := strings.TrimSpace(tagPattern.ReplaceAllString(raw[pos+m[4]:pos+m[5]], ""))
		content := cleanText(raw[bodyStart:bodyEnd])
		pos = bodyEnd

		if !p.Part.Wanted(number) || content == "" {
			continue
		}
		s := port.Section{Meta: p.Part.meta(number, title), Text: content}
		if i, seen := index[number]; seen {
			sections[i] = s
			continue
		}
		index[number] = len(sections)
		sections = append(sections, s)
	}

	return sections, nil
}

func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
