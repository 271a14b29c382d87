// Package store provides the durable backing for the quote cache.
//
// The in-memory TTL cache answers requests; this store lets cached
// quotes, company overviews, and the refresh watchlist survive a
// restart. Holdings are never persisted here - they belong to the
// client.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "portfolio-tracker/internal/errors"
	"portfolio-tracker/internal/models"
)

// SQLiteStore implements the durable cache using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Latest quote per symbol
	CREATE TABLE IF NOT EXISTS quotes (
		symbol TEXT PRIMARY KEY,
		price REAL NOT NULL,
		change REAL NOT NULL,
		change_percent REAL NOT NULL,
		volume INTEGER NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		open REAL NOT NULL,
		previous_close REAL NOT NULL,
		source TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	-- Company overviews, stored as JSON payloads
	CREATE TABLE IF NOT EXISTS companies (
		symbol TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	-- Symbols covered by the scheduled refresh
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_fetched_at ON quotes(fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveQuote upserts the latest quote for a symbol.
func (s *SQLiteStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (symbol, price, change, change_percent, volume, high, low, open, previous_close, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			volume = excluded.volume,
			high = excluded.high,
			low = excluded.low,
			open = excluded.open,
			previous_close = excluded.previous_close,
			source = excluded.source,
			fetched_at = excluded.fetched_at`,
		quote.Symbol, quote.Price, quote.Change, quote.ChangePercent, quote.Volume,
		quote.High, quote.Low, quote.Open, quote.PreviousClose, quote.Source, quote.Timestamp)
	if err != nil {
		return apperrors.NewStoreError("save_quote", quote.Symbol, err)
	}
	return nil
}

// GetQuote returns the stored quote for a symbol, or nil if absent.
func (s *SQLiteStore) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, high, low, open, previous_close, source, fetched_at
		FROM quotes WHERE symbol = ?`, symbol)

	quote, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get_quote", symbol, err)
	}
	return quote, nil
}

// RecentQuotes returns all quotes fetched within maxAge, for warming
// the memory cache at startup.
func (s *SQLiteStore) RecentQuotes(ctx context.Context, maxAge time.Duration) ([]*models.Quote, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, high, low, open, previous_close, source, fetched_at
		FROM quotes WHERE fetched_at > ?`, cutoff)
	if err != nil {
		return nil, apperrors.NewStoreError("recent_quotes", "", err)
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row scanner) (*models.Quote, error) {
	var q models.Quote
	err := row.Scan(&q.Symbol, &q.Price, &q.Change, &q.ChangePercent, &q.Volume,
		&q.High, &q.Low, &q.Open, &q.PreviousClose, &q.Source, &q.Timestamp)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// SaveCompany upserts a company overview.
func (s *SQLiteStore) SaveCompany(ctx context.Context, symbol string, overview *models.CompanyOverview) error {
	payload, err := json.Marshal(overview)
	if err != nil {
		return fmt.Errorf("marshaling company %s: %w", symbol, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO companies (symbol, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		symbol, string(payload), time.Now().UTC())
	if err != nil {
		return apperrors.NewStoreError("save_company", symbol, err)
	}
	return nil
}

// GetCompany returns the stored overview for a symbol if it is newer
// than maxAge, or nil otherwise.
func (s *SQLiteStore) GetCompany(ctx context.Context, symbol string, maxAge time.Duration) (*models.CompanyOverview, error) {
	var payload string
	var fetchedAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM companies WHERE symbol = ?`, symbol).
		Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get_company", symbol, err)
	}

	if time.Since(fetchedAt) > maxAge {
		return nil, nil
	}

	var overview models.CompanyOverview
	if err := json.Unmarshal([]byte(payload), &overview); err != nil {
		return nil, fmt.Errorf("unmarshaling company %s: %w", symbol, err)
	}
	return &overview, nil
}

// AddToWatchlist records a symbol for the scheduled refresh.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (symbol) VALUES (?)`, symbol)
	if err != nil {
		return apperrors.NewStoreError("watchlist_add", symbol, err)
	}
	return nil
}

// RemoveFromWatchlist drops a symbol from the scheduled refresh.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return apperrors.NewStoreError("watchlist_remove", symbol, err)
	}
	return nil
}

// Watchlist returns all symbols covered by the scheduled refresh.
func (s *SQLiteStore) Watchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, apperrors.NewStoreError("watchlist", "", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scanning watchlist: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}
