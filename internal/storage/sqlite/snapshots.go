package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/absingh/folio/internal/models"
)

// Append stores a new snapshot. The business-date primary key makes a
// duplicate date a constraint violation, reported as a ConsistencyError.
func (s *SnapshotStore) Append(ctx context.Context, snap *models.PortfolioSnapshot) error {
	const query = `
	INSERT INTO snapshots (business_date, index_value, market_value, total_cost_value, total_pnl, net_cash_flow)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		snap.BusinessDate.String(), snap.IndexValue, snap.MarketValue,
		snap.TotalCostValue, snap.TotalPnL, snap.NetCashFlow)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConsistencyError("snapshot", nil,
				"snapshot for %s already exists", snap.BusinessDate)
		}
		return fmt.Errorf("failed to insert snapshot for %s: %w", snap.BusinessDate, err)
	}
	return nil
}

// List returns all snapshots ordered by business date ascending.
func (s *SnapshotStore) List(ctx context.Context) ([]*models.PortfolioSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectSnapshots+` ORDER BY business_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*models.PortfolioSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Latest returns the most recent snapshot, or models.ErrNotFound.
func (s *SnapshotStore) Latest(ctx context.Context) (*models.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshots+` ORDER BY business_date DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return snap, err
}

const selectSnapshots = `
	SELECT business_date, index_value, market_value, total_cost_value, total_pnl, net_cash_flow
	FROM snapshots`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	var businessDate string
	if err := row.Scan(&businessDate, &snap.IndexValue, &snap.MarketValue,
		&snap.TotalCostValue, &snap.TotalPnL, &snap.NetCashFlow); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	var err error
	if snap.BusinessDate, err = models.ParseDate(businessDate); err != nil {
		return nil, fmt.Errorf("snapshot has bad business date: %w", err)
	}
	return &snap, nil
}
