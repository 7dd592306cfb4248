package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/suspectuso/nft-staking/internal/staking"
)

var ErrNotFound = errors.New("not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	// immediate transactions serialize writers up front instead of failing on upgrade
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			owner TEXT NOT NULL,
			collection_a TEXT NOT NULL,
			collection_b TEXT NOT NULL,
			reward_collection TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS mint_sequence (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			value INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS holders (
			principal TEXT PRIMARY KEY,
			tokens TEXT NOT NULL,
			last_accrual_time INTEGER NOT NULL,
			earned TEXT NOT NULL,
			released TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS mint_outbox (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token_id TEXT NOT NULL UNIQUE,
			collection TEXT NOT NULL,
			owner TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mint_outbox_status ON mint_outbox(status, id)`,

		`CREATE TABLE IF NOT EXISTS processed_requests (
			request_id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// Update implements staking.Store. The transaction commits only if fn
// returns nil.
func (s *Storage) Update(ctx context.Context, fn func(staking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&ledgerTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View implements staking.Store. Writes made by fn are discarded.
func (s *Storage) View(ctx context.Context, fn func(staking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	return fn(&ledgerTx{ctx: ctx, tx: tx})
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
