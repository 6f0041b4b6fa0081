package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"hrprag/config"
	"hrprag/internal/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "drug and alcohol testing")
	b, _ := e.Embed(ctx, "drug and alcohol testing")
	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{
		"random drug testing of HRP candidates",
		"drug testing for candidates",
		"psychological evaluation records",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related texts to be closer: related=%.3f unrelated=%.3f", related, unrelated)
	}
	if n := cosine(vecs[0], vecs[0]); math.Abs(n-1) > 1e-5 {
		t.Errorf("expected unit self-similarity, got %f", n)
	}
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_EMBED_KEY", "secret")

	e, err := NewOpenAICompatibleEmbedder("TEST_EMBED_KEY", "text-embedding-3-small", srv.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedderBatchOrder(t *testing.T) {
	var calls int32
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		resp := embeddingResponse{}
		// answer in reverse order to exercise index placement
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: []float32{float32(len(req.Input[i]))}})
		}
		json.NewEncoder(w).Encode(resp)
	})

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = strings.Repeat("x", i%7+1)
	}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vector %d out of order", i)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 requests for 150 inputs, got %d", n)
	}
}

func TestOpenAIEmbedderErrors(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	_, err := e.Embed(context.Background(), "query")
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
	var embErr *domain.EmbeddingError
	if !errors.As(err, &embErr) || embErr.Model != "text-embedding-3-small" {
		t.Errorf("expected model name in error, got %v", err)
	}
}

func TestOpenAIEmbedderMissingVectors(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	})

	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("expected embedding error for short response, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	emb, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if emb.Dimension() != 384 || emb.ModelName() != "hash-384" {
		t.Errorf("unexpected default embedder %s/%d", emb.ModelName(), emb.Dimension())
	}

	cfg.Provider = "openai"
	cfg.APIKeyEnv = "HRP_TEST_UNSET_KEY"
	t.Setenv("HRP_TEST_UNSET_KEY", "")
	if _, err := New(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected config error without API key, got %v", err)
	}

	cfg.Provider = "voyage"
	if _, err := New(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected config error for unknown provider, got %v", err)
	}
}

func TestNewHonoursConfiguredDimension(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "ollama"
	cfg.Model = "nomic-embed-text-v2"

	emb, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if emb.Dimension() != 768 {
		t.Errorf("expected guessed dimension 768, got %d", emb.Dimension())
	}

	cfg.Dimension = 512
	emb, err = New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if emb.Dimension() != 512 {
		t.Errorf("expected configured dimension 512, got %d", emb.Dimension())
	}

	cfg.Provider = "hash"
	if emb, _ := New(cfg); emb.Dimension() != 512 {
		t.Errorf("expected hash dimension 512, got %d", emb.Dimension())
	}
}

func TestOpenAIEmbedderRejectsWrongDimension(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	})

	if _, err := e.Embed(context.Background(), "a"); err != nil {
		t.Fatalf("unconfigured dimension should accept any size, got %v", err)
	}

	e.WithDimension(4)
	if _, err := e.Embed(context.Background(), "a"); !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("expected embedding error for 3-d vector at dimension 4, got %v", err)
	}
}
