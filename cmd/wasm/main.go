//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"hrprag/internal/adapter/chunker"
	"hrprag/internal/adapter/embedding"
	"hrprag/internal/adapter/handbook"
	"hrprag/internal/adapter/memstore"
	"hrprag/internal/adapter/tokenizer"
	"hrprag/internal/domain"
	"hrprag/internal/usecase"
)

const dimension = 384

var (
	store    *memstore.MemoryStore
	embedder *embedding.HashEmbedder
	chk      *chunker.RegulationChunker
)

func init() {
	store = memstore.NewMemoryStore()
	embedder = embedding.NewHashEmbedder(dimension)
	chk, _ = chunker.NewRegulationChunker(512, 50, tokenizer.NewWordTokenizer())
}

func main() {
	c := make(chan struct{})

	js.Global().Set("hrpIndex", js.FuncOf(indexContent))
	js.Global().Set("hrpQuery", js.FuncOf(queryContent))
	js.Global().Set("hrpClear", js.FuncOf(clearIndex))
	js.Global().Set("hrpStats", js.FuncOf(getStats))

	<-c
}

// indexContent ingests handbook-style markdown held by the page.
func indexContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: hrpIndex(markdown)")
	}

	sections, err := handbook.MarkdownParser{}.Parse(args[0].String())
	if err != nil {
		return makeError("parsing failed: " + err.Error())
	}

	ingest := usecase.NewIngestUseCase(chk, embedder, store, usecase.IngestOptions{}, nil)
	result, err := ingest.Ingest(context.Background(), sections, nil)
	if err != nil {
		return makeError("indexing failed: " + err.Error())
	}

	return makeResult(map[string]interface{}{
		"success":  true,
		"sections": result.SectionsIngested,
		"chunks":   result.ChunksStored,
	})
}

func queryContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: hrpQuery(query, [limit])")
	}

	query := args[0].String()
	limit := 5
	if len(args) > 1 {
		limit = args[1].Int()
	}

	svc := usecase.NewRetrievalService(embedder, store, nil)
	results, err := svc.Search(context.Background(), query, domain.SearchFilter{}, limit)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}

	output := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		output = append(output, map[string]interface{}{
			"id":       r.Chunk.ID,
			"section":  r.Chunk.Section,
			"title":    r.Chunk.Title,
			"citation": r.Chunk.Citation,
			"score":    r.Score,
			"text":     r.Chunk.Content,
		})
	}

	return makeResult(map[string]interface{}{
		"results": output,
		"query":   query,
	})
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	store = memstore.NewMemoryStore()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	n, _ := store.Count(context.Background(), nil)
	return makeResult(map[string]interface{}{
		"totalChunks": n,
		"model":       embedder.ModelName(),
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
