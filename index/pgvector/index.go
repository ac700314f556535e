// Package pgvector serves a corpus index from PostgreSQL using the pgvector
// extension.
//
// Publish copies a built index into a table with one row per position; Open
// returns an index.Searcher that ranks rows with the pgvector distance
// operator matching the index metric. A companion metadata table records
// the metric, dimension and chunk store fingerprint.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	pgv "github.com/pgvector/pgvector-go"
)

const publishBatchSize = 500

var (
	// ErrPoolRequired is returned when no connection pool is supplied.
	ErrPoolRequired = errors.New("connection pool is required")

	// ErrTableRequired is returned when no table name is supplied.
	ErrTableRequired = errors.New("table name is required")

	// ErrNotPublished is returned by Open when the table has no metadata row.
	ErrNotPublished = errors.New("index has not been published")
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Index is an index.Searcher backed by a pgvector table.
type Index struct {
	pool   *pgxpool.Pool
	table  string
	header index.Header
	query  string
}

var _ index.Searcher = (*Index)(nil)

func tableNames(table string) (rows, meta string) {
	return pgx.Identifier{table}.Sanitize(), pgx.Identifier{table + "_meta"}.Sanitize()
}

// Publish replaces the contents of table with the rows of f.
func Publish(ctx context.Context, pool *pgxpool.Pool, table string, f *index.Flat, fingerprint core.ID) error {
	if pool == nil {
		return ErrPoolRequired
	}
	if table == "" {
		return ErrTableRequired
	}
	logger := slog.Default().With("component", "pgvector")
	rows, meta := tableNames(table)

	dim := f.Dimension()
	if dim == 0 {
		// vector columns need a positive dimension even when empty
		dim = 1
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, rows),
		fmt.Sprintf(`CREATE TABLE %s (position integer PRIMARY KEY, embedding vector(%d) NOT NULL)`, rows, dim),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (metric text NOT NULL, dimension integer NOT NULL, row_count integer NOT NULL, fingerprint bigint NOT NULL)`, meta),
		fmt.Sprintf(`DELETE FROM %s`, meta),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare table %s: %w", table, err)
		}
	}

	insert := fmt.Sprintf(`INSERT INTO %s (position, embedding) VALUES ($1, $2)`, rows)
	for start := 0; start < f.Len(); start += publishBatchSize {
		end := min(start+publishBatchSize, f.Len())
		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			batch.Queue(insert, i, pgv.NewVector(f.Row(i)))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start, end, err)
		}
		logger.Debug("published rows", "table", table, "end", end, "total", f.Len())
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (metric, dimension, row_count, fingerprint) VALUES ($1, $2, $3, $4)`, meta),
		f.Metric().String(), f.Dimension(), f.Len(), int64(fingerprint))
	if err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info("published index", "table", table, "rows", f.Len(), "metric", f.Metric())
	return nil
}

// Open returns a searcher over a published table.
func Open(ctx context.Context, pool *pgxpool.Pool, table string) (*Index, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if table == "" {
		return nil, ErrTableRequired
	}
	rows, meta := tableNames(table)

	var (
		metricName  string
		dim, count  int
		fingerprint int64
	)
	err := pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT metric, dimension, row_count, fingerprint FROM %s LIMIT 1`, meta),
	).Scan(&metricName, &dim, &count, &fingerprint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", table, ErrNotPublished)
		}
		return nil, fmt.Errorf("failed to read metadata for %s: %w", table, err)
	}

	metric, err := index.ParseMetric(metricName)
	if err != nil {
		return nil, err
	}

	op := "<=>"
	if metric == index.MetricL2 {
		op = "<->"
	}

	return &Index{
		pool:  pool,
		table: table,
		header: index.Header{
			Metric:      metric,
			Dimension:   dim,
			Count:       count,
			Fingerprint: core.ID(fingerprint),
		},
		query: fmt.Sprintf(
			`SELECT position, embedding %s $1 AS distance FROM %s ORDER BY distance, position LIMIT $2`,
			op, rows),
	}, nil
}

// Header returns the published index metadata.
func (x *Index) Header() index.Header {
	return x.header
}

// Len returns the number of published rows.
func (x *Index) Len() int {
	return x.header.Count
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int {
	return x.header.Dimension
}

// Metric returns the distance metric.
func (x *Index) Metric() index.Metric {
	return x.header.Metric
}

// Search returns up to k rows ordered by ascending distance, ties by position.
// L2 distances are squared to match index.Flat.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]index.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", index.ErrInvalidK, k)
	}
	if x.header.Count == 0 {
		return []index.Hit{}, nil
	}
	if len(query) != x.header.Dimension {
		return nil, fmt.Errorf("%w: index has %d, query has %d", index.ErrDimensionMismatch, x.header.Dimension, len(query))
	}

	rows, err := x.pool.Query(ctx, x.query, pgv.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", x.table, err)
	}
	defer rows.Close()

	hits := make([]index.Hit, 0, min(k, x.header.Count))
	for rows.Next() {
		var (
			position int
			distance float64
		)
		if err := rows.Scan(&position, &distance); err != nil {
			return nil, err
		}
		if x.header.Metric == index.MetricL2 {
			distance *= distance
		}
		hits = append(hits, index.Hit{Distance: float32(distance), Position: position})
	}
	return hits, rows.Err()
}
