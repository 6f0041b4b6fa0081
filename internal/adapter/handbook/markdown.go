package handbook

import (
	"fmt"
	"regexp"
	"strings"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

var (
	headerPattern = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	slugStrip     = regexp.MustCompile(`[^a-z0-9\s]`)
	slugSpace     = regexp.MustCompile(`\s+`)
)

const maxSlugLen = 30

// MarkdownParser splits converted handbook markdown at #, ## and ###
// headers. Text before the first header becomes the "intro" section.
type MarkdownParser struct{}

var _ port.SectionParser = MarkdownParser{}

func (MarkdownParser) Name() string { return "markdown" }

func (MarkdownParser) Parse(raw string) ([]port.Section, error) {
	var sections []port.Section
	id, title := "intro", "Introduction"
	var body []string
	counter := 0

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text == "" {
			return
		}
		sections = append(sections, port.Section{
			Meta: domain.SectionMetadata{
				Section:  id,
				Title:    title,
				Citation: "DOE HRP Handbook - " + title,
				Source:   domain.SourceHandbook,
			},
			Text: text,
		})
	}

	for _, line := range strings.Split(raw, "\n") {
		m := headerPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			body = append(body, line)
			continue
		}
		flush()
		counter++
		title = strings.TrimSpace(m[2])
		id = SectionID(title, counter)
		body = body[:0]
	}
	flush()

	return sections, nil
}

// SectionID derives "handbook:<slug>:<NNN>" from a header title.
func SectionID(title string, counter int) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	slug = slugSpace.ReplaceAllString(strings.TrimSpace(slug), "_")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return fmt.Sprintf("handbook:%s:%03d", slug, counter)
}
