package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// IngestOptions sizes an ingestion run.
type IngestOptions struct {
	BatchSize int
	Workers   int
}

// IngestUseCase chunks parsed sections, embeds them in batches and writes
// them to the vector store.
type IngestUseCase struct {
	chunker  port.Chunker
	embedder port.Embedder
	store    port.VectorStore
	opts     IngestOptions
	logger   *slog.Logger
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	opts IngestOptions,
	logger *slog.Logger,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		opts:     opts,
		logger:   logger.With(slog.String("component", "ingest")),
	}
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	RunID            string   `json:"run_id"`
	SectionsIngested int      `json:"sections_ingested"`
	ChunksCreated    int      `json:"chunks_created"`
	ChunksStored     int      `json:"chunks_stored"`
	Errors           []string `json:"errors"`
}

// Success reports whether the run produced any chunks without failing.
func (r *IngestResult) Success() bool {
	return r.ChunksCreated > 0 && len(r.Errors) == 0
}

func (r *IngestResult) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// ProgressFunc is told how many chunks have been stored out of total.
type ProgressFunc func(done, total int)

// Ingest stores every section's chunks. Batches already written stay
// written when a later batch fails; callers rebuild with a clear first.
func (u *IngestUseCase) Ingest(ctx context.Context, sections []port.Section, progress ProgressFunc) (*IngestResult, error) {
	result := &IngestResult{
		RunID:            uuid.NewString(),
		SectionsIngested: len(sections),
	}
	logger := u.logger.With(slog.String("run_id", result.RunID))
	start := time.Now()

	if len(sections) == 0 {
		err := fmt.Errorf("%w: no sections to ingest", domain.ErrIngest)
		result.addError(err)
		return result, err
	}

	chunks := u.chunkAll(ctx, sections)
	if err := ctx.Err(); err != nil {
		result.addError(err)
		return result, err
	}
	result.ChunksCreated = len(chunks)
	logger.Info("chunked sections",
		slog.Int("sections", len(sections)),
		slog.Int("chunks", len(chunks)),
	)

	for i := 0; i < len(chunks); i += u.opts.BatchSize {
		end := i + u.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		if err := u.storeBatch(ctx, batch); err != nil {
			err = fmt.Errorf("%w: batch %d-%d: %w", domain.ErrIngest, i, end, err)
			result.addError(err)
			logger.Error("ingestion failed",
				slog.String("kind", domain.Classify(err)),
				slog.Int("stored", result.ChunksStored),
				slog.Any("error", err),
			)
			return result, err
		}

		result.ChunksStored += len(batch)
		logger.Debug("stored batch", slog.Int("size", len(batch)))
		if progress != nil {
			progress(result.ChunksStored, len(chunks))
		}
	}

	logger.Info("ingestion complete",
		slog.Int("sections", result.SectionsIngested),
		slog.Int("chunks", result.ChunksStored),
		slog.Duration("took", time.Since(start)),
	)
	return result, nil
}

// chunkAll chunks sections on a bounded worker pool and flattens the
// results in input order.
func (u *IngestUseCase) chunkAll(ctx context.Context, sections []port.Section) []domain.Chunk {
	perSection := make([][]domain.Chunk, len(sections))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < u.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perSection[i] = u.chunker.Chunk(sections[i].Text, sections[i].Meta)
			}
		}()
	}

feed:
	for i := range sections {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var chunks []domain.Chunk
	for _, c := range perSection {
		chunks = append(chunks, c...)
	}
	return chunks
}

func (u *IngestUseCase) storeBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.EmbeddingText()
	}

	vectors, err := u.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	return u.store.AddBatch(ctx, batch, vectors)
}
