package delay

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// PostgresStore persists the Archive in PostgreSQL, one row per record
type PostgresStore struct {
	db *sql.DB
}

const (
	pgDriver = "pgx"

	pgSchema = `
CREATE TABLE IF NOT EXISTS delay_records (
	seq  INTEGER PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS delay_meta (
	id    INTEGER PRIMARY KEY,
	clock BIGINT NOT NULL
);`

	pgDeleteRecords = `DELETE FROM delay_records`
	pgInsertRecord  = `INSERT INTO delay_records (seq, body) VALUES ($1, $2)`
	pgUpsertClock   = `INSERT INTO delay_meta (id, clock) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET clock = EXCLUDED.clock`
	pgSelectClock   = `SELECT clock FROM delay_meta WHERE id = 1`
	pgSelectRecords = `SELECT body FROM delay_records ORDER BY seq`
)

var _ Store = (*PostgresStore)(nil)

// OpenPostgresStore connects to the database URL and creates the tables
// the store needs
func OpenPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	db, err := sql.Open(pgDriver, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the store's tables if they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save replaces the stored Archive in a single transaction
func (s *PostgresStore) Save(ctx context.Context, a *Archive) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, pgDeleteRecords); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	for i, rec := range a.Records {
		if _, err = tx.ExecContext(ctx, pgInsertRecord, i, string(rec)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if _, err = tx.ExecContext(ctx, pgUpsertClock, int64(a.Clock)); err != nil {
		return fmt.Errorf("store clock: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads the stored Archive
func (s *PostgresStore) Load(ctx context.Context) (*Archive, error) {
	res := emptyArchive()

	var clock int64
	err := s.db.QueryRowContext(ctx, pgSelectClock).Scan(&clock)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("select clock: %w", err)
	default:
		res.Clock = Tick(clock)
	}

	rows, err := s.db.QueryContext(ctx, pgSelectRecords)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		res.Records = append(res.Records, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return res, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
