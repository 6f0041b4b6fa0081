package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"hrprag/internal/domain"
	"hrprag/internal/usecase"
)

// Searcher runs a similarity query; a cache may sit in front of it.
type Searcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.ScoredChunk, error)
}

// Lookup answers the exact-match reads.
type Lookup interface {
	GetSection(ctx context.Context, section string) ([]domain.Chunk, error)
	GetChunk(ctx context.Context, id string) (domain.Chunk, error)
	Count(ctx context.Context, subpart *domain.Subpart) (int, error)
}

// Limits bounds the number of hits a request may ask for.
type Limits struct {
	Default int
	Max     int
}

type RegulationHandler struct {
	searcher Searcher
	lookup   Lookup
	limits   Limits
}

func NewRegulationHandler(searcher Searcher, lookup Lookup, limits Limits) *RegulationHandler {
	if limits.Default <= 0 {
		limits.Default = 10
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &RegulationHandler{searcher: searcher, lookup: lookup, limits: limits}
}

func (h *RegulationHandler) HandleSearch(c *fiber.Ctx) error {
	var params SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	params.Query = strings.TrimSpace(params.Query)

	if errs := params.Validate(h.limits.Max); len(errs) > 0 {
		return NewValidationError(errs)
	}

	filter, err := params.Filter()
	if err != nil {
		return err
	}
	limit := usecase.ClampLimit(params.Limit, h.limits.Default, h.limits.Max)

	hits, err := h.searcher.Search(c.UserContext(), params.Query, filter, limit)
	if err != nil {
		return err
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = NewSearchResult(hit)
	}
	return c.JSON(SearchResponse{Query: params.Query, Count: len(results), Results: results})
}

func (h *RegulationHandler) HandleGetSection(c *fiber.Ctx) error {
	section := c.Params("section")
	chunks, err := h.lookup.GetSection(c.UserContext(), section)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound(section, "section")
	}
	if err != nil {
		return err
	}
	return c.JSON(NewSectionResponse(section, chunks))
}

func (h *RegulationHandler) HandleGetChunk(c *fiber.Ctx) error {
	id := c.Params("id")
	chunk, err := h.lookup.GetChunk(c.UserContext(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound(id, "chunk")
	}
	if err != nil {
		return err
	}
	return c.JSON(chunk)
}

func (h *RegulationHandler) HandleCount(c *fiber.Ctx) error {
	var subpart *domain.Subpart
	if raw := c.Query("subpart"); raw != "" {
		sp, err := domain.ParseSubpart(raw)
		if err != nil {
			return NewValidationError(map[string]string{"subpart": "failed on 'oneof' tag"})
		}
		subpart = &sp
	}

	n, err := h.lookup.Count(c.UserContext(), subpart)
	if err != nil {
		return err
	}
	resp := CountResponse{Count: n}
	if subpart != nil {
		resp.Subpart = string(*subpart)
	}
	return c.JSON(resp)
}

type CheckHandler struct{}

func NewCheckHandler() *CheckHandler {
	return &CheckHandler{}
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}
