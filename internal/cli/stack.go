package cli

import (
	"context"
	"fmt"
	"log/slog"

	"hrprag/config"
	"hrprag/internal/adapter/cache"
	"hrprag/internal/adapter/chunker"
	"hrprag/internal/adapter/embedding"
	"hrprag/internal/adapter/memstore"
	"hrprag/internal/adapter/store"
	"hrprag/internal/adapter/tokenizer"
	"hrprag/internal/port"
	"hrprag/internal/usecase"
)

// stack is the set of collaborators every command is built from.
type stack struct {
	cfg      *config.Config
	embedder port.Embedder
	store    port.VectorStore
	bolt     *store.BoltVectorStore // nil unless store.backend is bolt
	logger   *slog.Logger
}

// openStack builds the embedder and opens the configured vector store.
// When forWrite is false a bolt file whose chunking or embedding config no
// longer matches is opened anyway and a warning is logged.
func openStack(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger, forWrite bool) (*stack, error) {
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	s := &stack{cfg: cfg, embedder: emb, logger: logger}
	switch cfg.Store.Backend {
	case "memory":
		s.store = memstore.NewMemoryStore()
	case "postgres":
		pg, err := store.NewPostgresVectorStore(ctx, cfg.Store.PostgresDSN, cfg.Store.Table, emb.Dimension())
		if err != nil {
			return nil, err
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		s.store = pg
	default:
		bolt, err := openBolt(cfg, dir, logger, forWrite)
		if err != nil {
			return nil, err
		}
		s.store, s.bolt = bolt, bolt
	}
	return s, nil
}

func openBolt(cfg *config.Config, dir string, logger *slog.Logger, forWrite bool) (*store.BoltVectorStore, error) {
	dbPath := cfg.IndexDBPath(dir)
	if err := config.EnsureDataDir(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	vs, err := store.OpenBoltVectorStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	result, err := vs.Store().CheckMigration(cfg)
	if err != nil {
		vs.Close()
		return nil, err
	}

	switch {
	case result.NeedsRebuild && forWrite:
		logger.Warn("index rebuild required", slog.String("reason", result.Reason))
		if err := vs.DeleteAll(context.Background()); err != nil {
			vs.Close()
			return nil, err
		}
		if err := vs.Store().Migrate(cfg); err != nil {
			vs.Close()
			return nil, err
		}
	case result.NeedsRebuild:
		logger.Warn("index was built with a different configuration; re-run ingest with --clear",
			slog.String("reason", result.Reason))
	case result.NeedsMigration:
		logger.Info("running schema migration", slog.String("reason", result.Reason))
		if err := vs.Store().Migrate(cfg); err != nil {
			vs.Close()
			return nil, err
		}
	}
	return vs, nil
}

func (s *stack) Close() error {
	return s.store.Close()
}

func (s *stack) retrieval() *usecase.RetrievalService {
	return usecase.NewRetrievalService(s.embedder, s.store, s.logger)
}

// searcher puts the query cache in front of retrieval when it is enabled.
func (s *stack) searcher(svc *usecase.RetrievalService) cache.Searcher {
	if s.cfg.Retrieve.CacheSize == 0 {
		return svc
	}
	return cache.NewCachedSearcher(svc, cache.NewQueryCache(s.cfg.Retrieve.CacheSize, s.cfg.Retrieve.CacheTTL))
}

func (s *stack) ingester() (*usecase.IngestUseCase, error) {
	tok, err := tokenizer.New(s.cfg.Chunking.Tokenizer)
	if err != nil {
		return nil, err
	}
	chk, err := chunker.NewRegulationChunker(s.cfg.Chunking.MaxTokens, s.cfg.Chunking.OverlapTokens, tok)
	if err != nil {
		return nil, err
	}
	return usecase.NewIngestUseCase(chk, s.embedder, s.store, usecase.IngestOptions{
		BatchSize: s.cfg.Ingest.BatchSize,
		Workers:   s.cfg.Ingest.Workers,
	}, s.logger), nil
}

// recordConfig stamps the bolt file with the config it was built with.
func (s *stack) recordConfig() error {
	if s.bolt == nil {
		return nil
	}
	return s.bolt.Store().Migrate(s.cfg)
}
