// Package sqlite implements the storage contracts on a single SQLite file:
// the trade-lot ledger, realised history, snapshot sequence, dividend
// records, and the last-known price table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/absingh/folio/internal/common"
)

// Store wraps the shared database handle.
type Store struct {
	db     *sql.DB
	logger *common.Logger
}

// NewStore opens (or creates) the database file and initializes the schema.
func NewStore(path string, logger *common.Logger) (*Store, error) {
	if path == "" {
		path = "data/folio.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at %s: %w", path, err)
	}

	// SQLite serializes writers itself; one Go connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db, logger: logger}
	if err := store.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite store opened")
	return store, nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS lots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ticker TEXT NOT NULL DEFAULT '',
		sector TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL DEFAULT '',
		buy_date TEXT NOT NULL,
		buy_price REAL NOT NULL,
		qty INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL DEFAULT '',
		sell_date TEXT DEFAULT NULL,
		sell_price REAL DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS realised (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		sector TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL DEFAULT '',
		buy_date TEXT NOT NULL,
		sell_date TEXT NOT NULL,
		buy_price REAL NOT NULL,
		sell_price REAL NOT NULL,
		qty INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		tradevalue REAL NOT NULL DEFAULT 0,
		market_value REAL NOT NULL DEFAULT 0,
		total_pnl REAL NOT NULL DEFAULT 0,
		pct_pnl REAL DEFAULT NULL,
		tvm REAL DEFAULT NULL,
		pos_age INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		business_date TEXT PRIMARY KEY,
		index_value REAL NOT NULL,
		market_value REAL NOT NULL,
		total_cost_value REAL NOT NULL,
		total_pnl REAL NOT NULL,
		net_cash_flow REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dividends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		sector TEXT NOT NULL DEFAULT '',
		date_of_disbursement TEXT NOT NULL,
		rs_per_share REAL NOT NULL DEFAULT 0,
		qty INTEGER NOT NULL DEFAULT 0,
		amount REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT PRIMARY KEY,
		price REAL NOT NULL,
		prev_close REAL DEFAULT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ledger_meta (id, version) VALUES (1, 0);

	CREATE INDEX IF NOT EXISTS idx_lots_symbol_open ON lots (symbol, sell_date);
	CREATE INDEX IF NOT EXISTS idx_realised_sell_date ON realised (sell_date);
	CREATE INDEX IF NOT EXISTS idx_dividends_ticker ON dividends (ticker);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Debug().Msg("Closing SQLite store")
		return s.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite unique-constraint
// failure, such as inserting a second snapshot for the same business date.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// LedgerStore is the trade-lot ledger and realised-history facet.
type LedgerStore struct{ *Store }

// SnapshotStore is the portfolio snapshot facet.
type SnapshotStore struct{ *Store }

// DividendStore is the dividend record facet.
type DividendStore struct{ *Store }

// PriceStore is the last-known-price facet.
type PriceStore struct{ *Store }

// Ledger returns the ledger facet over the shared handle.
func (s *Store) Ledger() *LedgerStore { return &LedgerStore{s} }

// Snapshots returns the snapshot facet over the shared handle.
func (s *Store) Snapshots() *SnapshotStore { return &SnapshotStore{s} }

// Dividends returns the dividend facet over the shared handle.
func (s *Store) Dividends() *DividendStore { return &DividendStore{s} }

// Prices returns the price facet over the shared handle.
func (s *Store) Prices() *PriceStore { return &PriceStore{s} }
