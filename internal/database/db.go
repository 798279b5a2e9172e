package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"golang.org/x/sync/errgroup"
)

//go:embed schema.sql
var schema string

var (
	// ErrSlugConflict is returned when an insert or update loses a race on a
	// unique slug column.
	ErrSlugConflict = errors.New("slug already exists")

	// ErrMissingReference is returned when a song points at an artist,
	// composer or copyright owner that does not exist.
	ErrMissingReference = errors.New("referenced record does not exist")
)

type DB struct {
	*sql.DB
}

func New(dsn string, maxOpenConns int) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info().Int("max_open_conns", maxOpenConns).Msg("Database connection established")
	return &DB{db}, nil
}

// EnsureSchema creates any missing tables and indexes.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

// mapWriteError turns constraint violations into sentinel errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrSlugConflict
		case "23503":
			return ErrMissingReference
		}
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q anywhere, with LIKE
// metacharacters in q treated literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error checking rows affected: %w", err)
	}
	return n > 0, nil
}

// paginate runs count and fetch concurrently. fetch receives LIMIT/OFFSET.
func paginate(ctx context.Context, count func(context.Context) (int64, error), fetch func(ctx context.Context, limit, offset int) error, page, pageSize int) (int64, error) {
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := count(gctx)
		total = n
		return err
	})
	g.Go(func() error {
		return fetch(gctx, pageSize, models.Offset(page, pageSize))
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}

func countRows(ctx context.Context, db *DB, query string, args ...any) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return n, nil
}

func existsRow(ctx context.Context, db *DB, query string, args ...any) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking existence: %w", err)
	}
	return exists, nil
}
