package sqlite

import (
	"context"
	"fmt"

	"github.com/absingh/folio/internal/models"
)

// Add stores one dividend record and returns its assigned ID.
func (s *DividendStore) Add(ctx context.Context, rec *models.DividendRecord) (int64, error) {
	const query = `
	INSERT INTO dividends (ticker, sector, date_of_disbursement, rs_per_share, qty, amount)
	VALUES (?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		rec.Ticker, rec.Sector, rec.DateOfDisbursement.String(),
		rec.RsPerShare, rec.Qty, rec.Amount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dividend for %s: %w", rec.Ticker, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get dividend ID for %s: %w", rec.Ticker, err)
	}
	rec.ID = id
	return id, nil
}

// List returns every dividend record in disbursement order.
func (s *DividendStore) List(ctx context.Context) ([]*models.DividendRecord, error) {
	const query = `
	SELECT id, ticker, sector, date_of_disbursement, rs_per_share, qty, amount
	FROM dividends ORDER BY date_of_disbursement ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends: %w", err)
	}
	defer rows.Close()

	var out []*models.DividendRecord
	for rows.Next() {
		var rec models.DividendRecord
		var date string
		if err := rows.Scan(&rec.ID, &rec.Ticker, &rec.Sector, &date,
			&rec.RsPerShare, &rec.Qty, &rec.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}
		if rec.DateOfDisbursement, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("dividend %d has bad date: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
