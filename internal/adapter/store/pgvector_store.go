package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PostgresVectorStore implements port.VectorStore on PostgreSQL with the
// pgvector extension. Similarity is cosine, via the <=> operator.
type PostgresVectorStore struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

var _ port.VectorStore = (*PostgresVectorStore)(nil)

func NewPostgresVectorStore(ctx context.Context, connStr, table string, dimension int) (*PostgresVectorStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrConfig, table)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", domain.ErrConfig, dimension)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, domain.NewStoreError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.NewStoreError("connect", err)
	}

	return &PostgresVectorStore{
		pool:      pool,
		table:     table,
		dimension: dimension,
	}, nil
}

// Init creates the extension, table and indexes when missing.
func (p *PostgresVectorStore) Init(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createTableSQL(p.table, p.dimension))
	return domain.NewStoreError("init", err)
}

func createTableSQL(table string, dimension int) string {
	return fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		subpart TEXT,
		section TEXT NOT NULL,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		record JSONB NOT NULL,
		embedding vector(%[2]d) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_section ON %[1]s(section);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_subpart ON %[1]s(subpart);
	`, table, dimension)
}

// AddBatch upserts every pair inside one transaction.
func (p *PostgresVectorStore) AddBatch(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if _, err := CheckBatch(chunks, vectors, p.dimension); err != nil {
		return err
	}
	if err := checkText(chunks); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.NewStoreError("add", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (id, source, subpart, section, chunk_index, content, record, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			subpart = EXCLUDED.subpart,
			section = EXCLUDED.section,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			record = EXCLUDED.record,
			embedding = EXCLUDED.embedding
		`, p.table)

	for i, c := range chunks {
		record, err := json.Marshal(c)
		if err != nil {
			return domain.NewStoreError("add", err)
		}
		var subpart *string
		if c.Subpart != nil {
			s := string(*c.Subpart)
			subpart = &s
		}
		_, err = tx.Exec(ctx, query,
			c.ID, string(c.Source), subpart, c.Section, c.ChunkIndex, c.Content, record, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return domain.NewStoreError("add", err)
		}
	}

	return domain.NewStoreError("add", tx.Commit(ctx))
}

// buildSearchQuery renders the filtered nearest-neighbour query. vector is
// always $1 and limit is always the last argument.
func buildSearchQuery(table string, vector any, filter domain.SearchFilter, limit int) (string, []any) {
	args := []any{vector}
	var where []string
	if filter.Source != nil {
		args = append(args, string(*filter.Source))
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.Subpart != nil {
		args = append(args, string(*filter.Subpart))
		where = append(where, fmt.Sprintf("subpart = $%d", len(args)))
	}
	if filter.Section != "" {
		args = append(args, filter.Section)
		where = append(where, fmt.Sprintf("section = $%d", len(args)))
	}
	args = append(args, limit)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT record, embedding <=> $1 AS distance FROM %s", table)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY distance, id LIMIT $%d", len(args))
	return b.String(), args
}

func (p *PostgresVectorStore) Search(ctx context.Context, query []float32, filter domain.SearchFilter, limit int) ([]port.SearchHit, error) {
	if limit <= 0 {
		return []port.SearchHit{}, nil
	}
	if len(query) != p.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrValidation, p.dimension, len(query))
	}

	sql, args := buildSearchQuery(p.table, pgvector.NewVector(query), filter, limit)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewStoreError("search", err)
	}
	defer rows.Close()

	hits := []port.SearchHit{}
	for rows.Next() {
		var record []byte
		var distance float64
		if err := rows.Scan(&record, &distance); err != nil {
			return nil, domain.NewStoreError("search", err)
		}
		chunk, err := decodeChunk(record)
		if err != nil {
			return nil, domain.NewStoreError("search", err)
		}
		hits = append(hits, port.SearchHit{Chunk: chunk, Score: ScoreFromDistance(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("search", err)
	}
	return hits, nil
}

func (p *PostgresVectorStore) GetByID(ctx context.Context, id string) (domain.Chunk, error) {
	var record []byte
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT record FROM %s WHERE id = $1", p.table), id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Chunk{}, &domain.NotFoundError{Kind: "chunk", Key: id}
	}
	if err != nil {
		return domain.Chunk{}, domain.NewStoreError("get", err)
	}
	chunk, err := decodeChunk(record)
	return chunk, domain.NewStoreError("get", err)
}

func (p *PostgresVectorStore) GetBySection(ctx context.Context, section string) ([]domain.Chunk, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT record FROM %s WHERE section = $1", p.table), section)
	if err != nil {
		return nil, domain.NewStoreError("get section", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, domain.NewStoreError("get section", err)
		}
		chunk, err := decodeChunk(record)
		if err != nil {
			return nil, domain.NewStoreError("get section", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, domain.NewStoreError("get section", rows.Err())
}

func (p *PostgresVectorStore) Count(ctx context.Context, subpart *domain.Subpart) (int, error) {
	var n int
	var err error
	if subpart == nil {
		err = p.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", p.table)).Scan(&n)
	} else {
		err = p.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE subpart = $1", p.table), string(*subpart)).Scan(&n)
	}
	return n, domain.NewStoreError("count", err)
}

func (p *PostgresVectorStore) DeleteAll(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", p.table))
	return domain.NewStoreError("delete all", err)
}

func (p *PostgresVectorStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func decodeChunk(record []byte) (domain.Chunk, error) {
	var c domain.Chunk
	if err := json.Unmarshal(record, &c); err != nil {
		return domain.Chunk{}, fmt.Errorf("decode record: %w", err)
	}
	return c, nil
}

// checkText rejects content that a text column or a JSON record could not
// hold byte for byte.
func checkText(chunks []domain.Chunk) error {
	for _, c := range chunks {
		if !utf8.ValidString(c.Content) {
			return fmt.Errorf("%w: chunk %s content is not valid UTF-8", domain.ErrValidation, c.ID)
		}
	}
	return nil
}
