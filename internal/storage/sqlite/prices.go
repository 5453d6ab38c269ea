package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/absingh/folio/internal/models"
)

// Quote returns the latest known price and previous close for a symbol.
func (s *PriceStore) Quote(ctx context.Context, symbol string) (models.PriceQuote, error) {
	symbol = models.NormalizeSymbol(symbol)

	var quote models.PriceQuote
	var prevClose sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, price, prev_close FROM prices WHERE symbol = ?`, symbol).
		Scan(&quote.Symbol, &quote.Price, &prevClose)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PriceQuote{Symbol: symbol}, models.ErrPriceUnavailable
	}
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("failed to read price for %s: %w", symbol, err)
	}

	quote.Available = true
	if prevClose.Valid {
		quote.PrevClose = prevClose.Float64
	}
	return quote, nil
}

// SetPrice records a new latest price. On an intra-day update the previous
// close is preserved; on the first update of a new day the outgoing latest
// becomes the previous close.
func (s *PriceStore) SetPrice(ctx context.Context, symbol string, price float64) error {
	return s.setPriceOn(ctx, symbol, price, models.Today())
}

// setPriceOn is SetPrice with an explicit business day, so the day rollover
// can be driven deterministically in tests.
func (s *PriceStore) setPriceOn(ctx context.Context, symbol string, price float64, day models.Date) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.NewValidationError("symbol", "is required")
	}
	if price <= 0 {
		return models.NewValidationError("price", "must be positive, got %v", price)
	}

	const query = `
	INSERT INTO prices (symbol, price, prev_close, updated_at)
	VALUES (?, ?, NULL, ?)
	ON CONFLICT(symbol) DO UPDATE SET
		prev_close = CASE
			WHEN substr(prices.updated_at, 1, 10) <> excluded.updated_at THEN prices.price
			ELSE prices.prev_close
		END,
		price = excluded.price,
		updated_at = excluded.updated_at || 'T' || ?`

	timestamp := time.Now().UTC().Format("15:04:05")
	if _, err := s.db.ExecContext(ctx, query, symbol, price, day.String(), timestamp); err != nil {
		return fmt.Errorf("failed to set price for %s: %w", symbol, err)
	}
	return nil
}

// symbolsWithPrices is a small helper used by tests and diagnostics.
func (s *PriceStore) symbolsWithPrices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query price symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, strings.ToUpper(sym))
	}
	return out, rows.Err()
}
