// Package universe manages the asset universe: symbol resolution, price
// downloads and the local price history cache.
package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"quantfolio/internal/clients/yahoo"
)

// HistoryDB provides access to cached daily closing prices
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// DailyClose is one cached observation
type DailyClose struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// SyncPrices upserts downloaded prices for a symbol in a single transaction.
// Adjusted closes are stored so splits and dividends do not distort returns.
func (h *HistoryDB) SyncPrices(symbol string, prices []yahoo.HistoricalPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if p.AdjClose <= 0 {
			continue
		}
		if _, err := stmt.Exec(symbol, p.Date.Format("2006-01-02"), p.AdjClose); err != nil {
			return fmt.Errorf("failed to upsert price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("count", len(prices)).Msg("Synced prices")
	return nil
}

// GetPriceHistory fetches all cached closes for a symbol in ascending date order
func (h *HistoryDB) GetPriceHistory(symbol string) ([]DailyClose, error) {
	rows, err := h.db.Query(`SELECT date, close FROM daily_prices WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var prices []DailyClose
	for rows.Next() {
		var p DailyClose
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	return prices, nil
}

// GetLatestDate returns the most recent cached date for a symbol, or nil when
// the symbol has no history.
func (h *HistoryDB) GetLatestDate(symbol string) (*string, error) {
	var date sql.NullString
	err := h.db.QueryRow(`SELECT MAX(date) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&date)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest date: %w", err)
	}
	if !date.Valid {
		return nil, nil
	}
	return &date.String, nil
}

// ListSymbols returns every symbol with cached history
func (h *HistoryDB) ListSymbols() ([]string, error) {
	rows, err := h.db.Query(`SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}
