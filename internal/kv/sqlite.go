package kv

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single-file sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. WAL mode keeps the
// sweep and handler goroutines from tripping over each other.
func NewSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS balances (
		user TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_balances_balance ON balances(balance);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Balance(ctx context.Context, user string) (int64, error) {
	var b int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE user = ?`, normalize(user)).Scan(&b)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", user, err)
	}
	return b, nil
}

func (s *SQLiteStore) Adjust(ctx context.Context, user string, delta int64) (int64, error) {
	u := normalize(user)
	var b int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO balances (user, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user) DO UPDATE SET
			balance = balance + excluded.balance,
			updated_at = excluded.updated_at
		RETURNING balance`,
		u, delta, time.Now().Unix()).Scan(&b)
	if err != nil {
		return 0, fmt.Errorf("adjust %s by %d: %w", user, delta, err)
	}
	return b, nil
}

func (s *SQLiteStore) Top(ctx context.Context, n int) ([]BalanceEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user, balance FROM balances ORDER BY balance DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	var out []BalanceEntry
	for rows.Next() {
		var e BalanceEntry
		if err := rows.Scan(&e.User, &e.Balance); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func normalize(user string) string { return strings.ToLower(strings.TrimSpace(user)) }
