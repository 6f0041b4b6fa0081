package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"hrprag/internal/adapter/embedding"
	"hrprag/internal/adapter/memstore"
	"hrprag/internal/domain"
	"hrprag/internal/usecase"
)

func chunk(section string, index int, title, content string) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(domain.SourceCFR712, section, index),
		Source:     domain.SourceCFR712,
		Subpart:    domain.SubpartForSection(section).Ptr(),
		Section:    section,
		Title:      title,
		Citation:   "10 CFR " + section,
		Content:    content,
		ChunkIndex: index,
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	emb := embedding.NewHashEmbedder(128)
	st := memstore.NewMemoryStore()

	chunks := []domain.Chunk{
		chunk("712.15", 0, "Drug and alcohol testing", "Random drug and alcohol testing of HRP-certified individuals. "+strings.Repeat("Testing detail. ", 60)),
		chunk("712.15", 1, "Drug and alcohol testing", "Positive tests result in removal."),
		chunk("712.33", 0, "Psychological evaluation", "The psychologist conducts a psychological evaluation."),
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbeddingText()
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.AddBatch(ctx, chunks, vectors); err != nil {
		t.Fatal(err)
	}

	svc := usecase.NewRetrievalService(emb, st, nil)
	return NewApp(NewRegulationHandler(svc, svc, Limits{Default: 10, Max: 20}), nil)
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func TestHealthy(t *testing.T) {
	code, body := do(t, newTestApp(t), http.MethodGet, "/check/healthy", "")
	if code != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("expected healthy ok, got %d %s", code, body)
	}
}

func TestSearch(t *testing.T) {
	app := newTestApp(t)
	code, body := do(t, app, http.MethodPost, "/api/v1/search", `{"query":"drug alcohol testing","limit":2}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", resp.Count)
	}
	top := resp.Results[0]
	if top.Section != "712.15" {
		t.Errorf("expected 712.15 first, got %s", top.Section)
	}
	if top.Subpart != "subpart_a" {
		t.Errorf("expected subpart_a, got %q", top.Subpart)
	}
	if resp.Results[0].Score < resp.Results[1].Score {
		t.Error("results should be ordered by score")
	}
	for _, r := range resp.Results {
		if len([]rune(r.Content)) > maxContentPreview+3 {
			t.Errorf("content of %s not truncated: %d runes", r.ID, len([]rune(r.Content)))
		}
	}
}

func TestSearchFilters(t *testing.T) {
	app := newTestApp(t)
	code, body := do(t, app, http.MethodPost, "/api/v1/search", `{"query":"testing evaluation","subpart":"b"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.Subpart != "subpart_b" {
			t.Errorf("expected only subpart_b results, got %s", r.Subpart)
		}
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"query":`, http.StatusBadRequest},
		{"missing query", `{"limit":3}`, http.StatusUnprocessableEntity},
		{"blank query", `{"query":"   "}`, http.StatusUnprocessableEntity},
		{"negative limit", `{"query":"x","limit":-1}`, http.StatusUnprocessableEntity},
		{"unknown source", `{"query":"x","source":"10cfr999"}`, http.StatusUnprocessableEntity},
		{"unknown subpart", `{"query":"x","subpart":"c"}`, http.StatusUnprocessableEntity},
		{"limit above configured max", `{"query":"x","limit":21}`, http.StatusUnprocessableEntity},
		{"limit at configured max", `{"query":"x","limit":20}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, app, http.MethodPost, "/api/v1/search", tt.body)
			if code != tt.code {
				t.Errorf("expected %d, got %d %s", tt.code, code, body)
			}
		})
	}
}

func TestGetSection(t *testing.T) {
	app := newTestApp(t)
	code, body := do(t, app, http.MethodGet, "/api/v1/sections/712.15", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
	var resp SectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Chunks) != 2 || resp.Chunks[0].ChunkIndex != 0 || resp.Chunks[1].ChunkIndex != 1 {
		t.Errorf("expected two ordered chunks, got %+v", resp.Chunks)
	}
	if resp.Citation != "10 CFR 712.15" {
		t.Errorf("expected citation, got %q", resp.Citation)
	}

	code, _ = do(t, app, http.MethodGet, "/api/v1/sections/712.99", "")
	if code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown section, got %d", code)
	}
}

func TestGetChunk(t *testing.T) {
	app := newTestApp(t)
	id := domain.ChunkID(domain.SourceCFR712, "712.33", 0)
	code, body := do(t, app, http.MethodGet, "/api/v1/chunks/"+id, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
	var c domain.Chunk
	if err := json.Unmarshal(body, &c); err != nil {
		t.Fatal(err)
	}
	if c.ID != id {
		t.Errorf("expected %s, got %s", id, c.ID)
	}

	code, _ = do(t, app, http.MethodGet, "/api/v1/chunks/missing", "")
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestCount(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		target string
		code   int
		count  int
	}{
		{"/api/v1/count", http.StatusOK, 3},
		{"/api/v1/count?subpart=subpart_a", http.StatusOK, 2},
		{"/api/v1/count?subpart=B", http.StatusOK, 1},
		{"/api/v1/count?subpart=z", http.StatusUnprocessableEntity, 0},
	}
	for _, tt := range tests {
		code, body := do(t, app, http.MethodGet, tt.target, "")
		if code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.code, code)
			continue
		}
		if code != http.StatusOK {
			continue
		}
		var resp CountResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Count != tt.count {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.count, resp.Count)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&domain.NotFoundError{Kind: "chunk", Key: "x"}, fiber.StatusNotFound},
		{domain.ErrValidation, fiber.StatusUnprocessableEntity},
		{&domain.EmbeddingError{Model: "m", Err: errors.New("down")}, fiber.StatusBadGateway},
		{domain.NewStoreError("search", errors.New("conn reset")), fiber.StatusBadGateway},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short unchanged, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("expected abc..., got %q", got)
	}
}

func TestSearchParamsValidateUsesMaxLimit(t *testing.T) {
	params := SearchParams{Query: "x", Limit: 80}
	if errs := params.Validate(100); errs != nil {
		t.Errorf("expected limit 80 to pass with max 100, got %v", errs)
	}
	errs := params.Validate(50)
	if errs["Limit"] != "failed on 'lte' tag" {
		t.Errorf("expected lte failure with max 50, got %v", errs)
	}
}
