package httpapi

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"hrprag/internal/domain"
)

// maxContentPreview bounds the content returned per search hit.
const maxContentPreview = 500

var validate = validator.New()

type SearchParams struct {
	Query   string `json:"query" validate:"required"`
	Limit   int    `json:"limit" validate:"gte=0"`
	Subpart string `json:"subpart" validate:"omitempty,oneof=subpart_a subpart_b a b A B"`
	Source  string `json:"source" validate:"omitempty,oneof=10cfr707 10cfr710 10cfr712 hrp_handbook"`
	Section string `json:"section"`
}

// Validate checks the struct tags and bounds Limit by maxLimit, the
// configured retrieve.max_limit.
func (params *SearchParams) Validate(maxLimit int) map[string]string {
	out := make(map[string]string)
	if err := validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		for _, e := range errs {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
	}
	if _, failed := out["Limit"]; !failed && maxLimit > 0 {
		if err := validate.Var(params.Limit, fmt.Sprintf("lte=%d", maxLimit)); err != nil {
			out["Limit"] = "failed on 'lte' tag"
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Filter turns validated params into a search filter.
func (params *SearchParams) Filter() (domain.SearchFilter, error) {
	var filter domain.SearchFilter
	if params.Source != "" {
		src, err := domain.ParseSource(params.Source)
		if err != nil {
			return filter, err
		}
		filter.Source = &src
	}
	if params.Subpart != "" {
		sp, err := domain.ParseSubpart(params.Subpart)
		if err != nil {
			return filter, err
		}
		filter.Subpart = &sp
	}
	filter.Section = params.Section
	return filter, nil
}

type SearchResult struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Subpart  string  `json:"subpart,omitempty"`
	Section  string  `json:"section"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Citation string  `json:"citation"`
	Score    float64 `json:"score"`
}

func NewSearchResult(sc domain.ScoredChunk) SearchResult {
	c := sc.Chunk
	return SearchResult{
		ID:       c.ID,
		Source:   string(c.Source),
		Subpart:  c.SubpartValue(),
		Section:  c.Section,
		Title:    c.Title,
		Content:  truncate(c.Content, maxContentPreview),
		Citation: c.Citation,
		Score:    math.Round(sc.Score*1000) / 1000,
	}
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

type SectionResponse struct {
	Section  string         `json:"section"`
	Title    string         `json:"title"`
	Citation string         `json:"citation"`
	Subpart  string         `json:"subpart,omitempty"`
	Content  string         `json:"content"`
	Chunks   []domain.Chunk `json:"chunks"`
}

func NewSectionResponse(section string, chunks []domain.Chunk) SectionResponse {
	resp := SectionResponse{Section: section, Chunks: chunks}
	if len(chunks) > 0 {
		first := chunks[0]
		resp.Title = first.Title
		resp.Citation = first.Citation
		resp.Subpart = first.SubpartValue()
	}
	for i, c := range chunks {
		if i > 0 {
			resp.Content += "\n\n"
		}
		resp.Content += c.Content
	}
	return resp
}

type CountResponse struct {
	Subpart string `json:"subpart,omitempty"`
	Count   int    `json:"count"`
}

// truncate cuts s to n runes and marks the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
