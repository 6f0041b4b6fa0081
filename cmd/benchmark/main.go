package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"hrprag/config"
	"hrprag/internal/adapter/embedding"
	"hrprag/internal/adapter/store"
	"hrprag/internal/domain"
	"hrprag/internal/usecase"
)

func main() {
	indexPath := flag.String("index", ".", "Directory holding .hrprag/index.db")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	subpart := flag.String("subpart", "", "Restrict to subpart a or b")
	expect := flag.String("expect", "", "Section expected among the results, e.g. 712.15")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index . -q \"query\" [-expect 712.15]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Embedding and store setup (model, dimension, chunk count)")
		fmt.Println("  2. Similarity of the top matches")
		fmt.Println("  3. Rank of the expected section, when given")
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	vs, err := store.OpenBoltVectorStore(cfg.IndexDBPath(*indexPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer vs.Close()

	count, _ := vs.Count(ctx, nil)
	if count == 0 {
		fmt.Fprintln(os.Stderr, "No chunks indexed - run 'hrprag ingest ecfr' first")
		os.Exit(1)
	}

	var filter domain.SearchFilter
	if *subpart != "" {
		sp, err := domain.ParseSubpart(*subpart)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		filter.Subpart = &sp
	}

	fmt.Println("REGULATION RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", emb.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", emb.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	svc := usecase.NewRetrievalService(emb, vs, nil)
	results, err := svc.Search(ctx, *query, filter, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	expectedRank := 0
	for i, r := range results {
		preview := r.Chunk.Content
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		totalScore += r.Score
		if expectedRank == 0 && *expect != "" && r.Chunk.Section == *expect {
			expectedRank = i + 1
		}

		fmt.Printf("%d. [%s %.3f] %s %s\n", i+1, rating(r.Score), r.Score, r.Chunk.Citation, r.Chunk.Title)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	if *expect != "" {
		if expectedRank > 0 {
			fmt.Printf("  Expected section:   %s at rank %d\n", *expect, expectedRank)
		} else {
			fmt.Printf("  Expected section:   %s not in top %d\n", *expect, len(results))
		}
	}

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-ingestion")
	}
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	}
	return "LOW"
}
