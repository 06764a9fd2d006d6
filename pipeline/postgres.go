package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/books-scrape-api/models"
)

var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type execCloser interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink mirrors persisted books into a Postgres table.
type PostgresSink struct {
	pool      execCloser
	table     string
	insertSQL string
}

// NewPostgresSink connects to dsn and makes sure table exists.
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sink, err := NewPostgresSinkWithPool(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := sink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// NewPostgresSinkWithPool wraps an existing pool. The schema is not touched.
func NewPostgresSinkWithPool(pool execCloser, table string) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{
		pool:  pool,
		table: table,
		insertSQL: fmt.Sprintf(`INSERT INTO %s
			(title, price, rating, availability, image_url, scrape_timestamp, source_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, table),
	}, nil
}

// EnsureSchema creates the mirror table when it is missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		rating TEXT NOT NULL,
		availability TEXT NOT NULL,
		image_url TEXT NOT NULL,
		scrape_timestamp TEXT NOT NULL,
		source_url TEXT NOT NULL
	)`, s.table)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

// Write inserts one row per book. It stops at the first failing row.
func (s *PostgresSink) Write(ctx context.Context, books []*models.Book) error {
	for _, b := range books {
		if _, err := s.pool.Exec(ctx, s.insertSQL,
			b.Title, b.Price, b.Rating, b.Availability, b.ImageURL, b.ScrapeTimestamp, b.SourceURL,
		); err != nil {
			return fmt.Errorf("insert %q: %w", b.Title, err)
		}
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
