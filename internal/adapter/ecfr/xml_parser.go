package ecfr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// XMLParser extracts sections from eCFR full-title XML. Section elements
// are SECTION, DIV8 or DIV9; everything outside them is skipped.
type XMLParser struct {
	Part Part
}

var _ port.SectionParser = XMLParser{}

func (p XMLParser) Name() string { return "xml" }

// element is a captured subtree. items holds, in document order, either
// string text or *element children.
type element struct {
	name  string
	attrs []xml.Attr
	items []any
}

func (e *element) children() []*element {
	var out []*element
	for _, it := range e.items {
		if c, ok := it.(*element); ok {
			out = append(out, c)
		}
	}
	return out
}

// text is the concatenation of all descendant text.
func (e *element) text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *element) writeText(b *strings.Builder) {
	for _, it := range e.items {
		switch v := it.(type) {
		case string:
			b.WriteString(v)
		case *element:
			v.writeText(b)
		}
	}
}

func (e *element) attr(name string) string {
	for _, a := range e.attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func isSectionTag(name string) bool {
	switch strings.ToUpper(name) {
	case "SECTION", "DIV8", "DIV9":
		return true
	}
	return false
}

func isContentTag(name string) bool {
	switch strings.ToUpper(name) {
	case "P", "FP", "AMDPAR", "NOTE":
		return true
	}
	return false
}

// Parse returns sections in document order. A section that appears twice
// keeps its first position and its last content.
func (p XMLParser) Parse(raw string) ([]port.Section, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	pattern := p.Part.sectionPattern()
	var sections []port.Section
	index := make(map[string]int)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sections, fmt.Errorf("%w: XML parse error: %v", domain.ErrIngest, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || !isSectionTag(start.Name.Local) {
			continue
		}

		elem, err := capture(dec, start)
		if err != nil {
			return sections, fmt.Errorf("%w: XML parse error: %v", domain.ErrIngest, err)
		}

		number := sectionNumber(elem, pattern)
		if number == "" || !p.Part.Wanted(number) {
			continue
		}
		content := sectionContent(elem)
		if content == "" {
			continue
		}

		s := port.Section{
			Meta: p.Part.meta(number, p.sectionTitle(elem, number)),
			Text: content,
		}
		if i, seen := index[number]; seen {
			sections[i] = s
			continue
		}
		index[number] = len(sections)
		sections = append(sections, s)
	}

	return sections, nil
}

// capture reads the subtree opened by start.
func capture(dec *xml.Decoder, start xml.StartElement) (*element, error) {
	root := &element{name: start.Name.Local, attrs: start.Attr}
	stack := []*element{root}

	for len(stack) > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			child := &element{name: t.Name.Local, attrs: t.Attr}
			top.items = append(top.items, child)
			stack = append(stack, child)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			top.items = append(top.items, string(t))
		}
	}
	return root, nil
}

func sectionNumber(elem *element, pattern *regexp.Regexp) string {
	for _, c := range elem.children() {
		if strings.EqualFold(c.name, "SECTNO") {
			if m := pattern.FindString(c.text()); m != "" {
				return m
			}
		}
	}
	for _, c := range elem.children() {
		if strings.EqualFold(c.name, "HEAD") {
			if m := pattern.FindString(c.text()); m != "" {
				return m
			}
		}
	}
	return pattern.FindString(elem.attr("N"))
}

func (p XMLParser) sectionTitle(elem *element, number string) string {
	for _, c := range elem.children() {
		if strings.EqualFold(c.name, "SUBJECT") {
			return strings.TrimSpace(c.text())
		}
	}

	prefix := regexp.MustCompile(`^§?\s*` + regexp.QuoteMeta(number) + `\s*`)
	for _, c := range elem.children() {
		if strings.EqualFold(c.name, "HEAD") {
			if title := prefix.ReplaceAllString(strings.TrimSpace(c.text()), ""); title != "" {
				return title
			}
		}
	}

	return p.Part.KnownTitle(number)
}

// sectionContent joins the paragraph-level elements with blank lines. A
// matched element's descendants are not visited again.
func sectionContent(elem *element) string {
	var parts []string
	var walk func(e *element)
	walk = func(e *element) {
		for _, c := range e.children() {
			if isContentTag(c.name) {
				if t := strings.TrimSpace(c.text()); t != "" {
					parts = append(parts, t)
				}
				continue
			}
			walk(c)
		}
	}
	walk(elem)
	return strings.Join(parts, "\n\n")
}
