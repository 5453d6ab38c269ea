package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/absingh/folio/internal/models"
)

// AddLot appends a buy lot and returns its assigned ID. The ledger version
// advances with the write.
func (s *LedgerStore) AddLot(ctx context.Context, lot *models.TradeLot) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	const query = `
	INSERT INTO lots (symbol, ticker, sector, account, buy_date, buy_price, qty, note, strategy)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		lot.Symbol, lot.Ticker, lot.Sector, lot.Account,
		lot.BuyDate.String(), lot.BuyPrice, lot.Qty, lot.Note, lot.Strategy)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lot for %s: %w", lot.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get lot ID for %s: %w", lot.Symbol, err)
	}

	if _, err := bumpVersion(ctx, tx); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit lot insert: %w", err)
	}

	lot.ID = id
	return id, nil
}

// ListOpenLots returns all unsold lots and the ledger version observed by
// the same transaction, so the caller knows exactly how fresh the read is.
func (s *LedgerStore) ListOpenLots(ctx context.Context) ([]*models.TradeLot, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, selectLots+` WHERE sell_date IS NULL ORDER BY buy_date ASC, id ASC`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query open lots: %w", err)
	}
	lots, err := scanLots(rows)
	if err != nil {
		return nil, 0, err
	}

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM ledger_meta WHERE id = 1`).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("failed to read ledger version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit read: %w", err)
	}
	return lots, version, nil
}

// ListLots returns every lot, open and sold, ordered by buy date.
func (s *LedgerStore) ListLots(ctx context.Context) ([]*models.TradeLot, error) {
	rows, err := s.db.QueryContext(ctx, selectLots+` ORDER BY buy_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	return scanLots(rows)
}

const selectLots = `
	SELECT id, symbol, ticker, sector, account, buy_date, buy_price, qty, note, strategy,
	       COALESCE(sell_date, ''), COALESCE(sell_price, 0)
	FROM lots`

func scanLots(rows *sql.Rows) ([]*models.TradeLot, error) {
	defer rows.Close()
	var lots []*models.TradeLot
	for rows.Next() {
		var lot models.TradeLot
		var buyDate, sellDate string
		if err := rows.Scan(&lot.ID, &lot.Symbol, &lot.Ticker, &lot.Sector, &lot.Account,
			&buyDate, &lot.BuyPrice, &lot.Qty, &lot.Note, &lot.Strategy,
			&sellDate, &lot.SellPrice); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		var err error
		if lot.BuyDate, err = models.ParseDate(buyDate); err != nil {
			return nil, fmt.Errorf("lot %d has bad buy date: %w", lot.ID, err)
		}
		if sellDate != "" {
			if lot.SellDate, err = models.ParseDate(sellDate); err != nil {
				return nil, fmt.Errorf("lot %d has bad sell date: %w", lot.ID, err)
			}
		}
		lots = append(lots, &lot)
	}
	return lots, rows.Err()
}

// MarkSold sets the sell terms on the given lots in one transaction. The
// WHERE sell_date IS NULL guard is the compare-and-swap: if any lot was
// already sold the row count comes up short, the transaction rolls back, and
// the caller gets a ConsistencyError. The second of two racing sellers
// always lands here.
func (s *LedgerStore) MarkSold(ctx context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64) (int64, error) {
	if len(lotIDs) == 0 {
		return 0, models.NewValidationError("lot_ids", "must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := markSoldTx(ctx, tx, lotIDs, sellDate, sellPrice); err != nil {
		return 0, err
	}

	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mark sold: %w", err)
	}
	return version, nil
}

// FinalizeSale marks the lots sold and appends the realised record in one
// transaction, so a failed realised insert never strands lots in a sold
// state with no history entry. The sell-mark carries the same CAS as
// MarkSold: the loser of a racing sale writes nothing.
func (s *LedgerStore) FinalizeSale(ctx context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64, rp *models.RealisedPosition) (int64, error) {
	if len(lotIDs) == 0 {
		return 0, models.NewValidationError("lot_ids", "must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := markSoldTx(ctx, tx, lotIDs, sellDate, sellPrice); err != nil {
		return 0, err
	}
	id, err := insertRealised(ctx, tx, rp)
	if err != nil {
		return 0, err
	}

	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sale: %w", err)
	}
	rp.ID = id
	return version, nil
}

func markSoldTx(ctx context.Context, tx *sql.Tx, lotIDs []int64, sellDate models.Date, sellPrice float64) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(lotIDs)), ",")
	args := make([]interface{}, 0, len(lotIDs)+2)
	args = append(args, sellDate.String(), sellPrice)
	for _, id := range lotIDs {
		args = append(args, id)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE lots SET sell_date = ?, sell_price = ? WHERE id IN (`+placeholders+`) AND sell_date IS NULL`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to mark lots sold: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected != int64(len(lotIDs)) {
		return models.NewConsistencyError("mark_sold", models.ErrAlreadySold,
			"%d of %d lots were already sold", int64(len(lotIDs))-affected, len(lotIDs))
	}
	return nil
}

// Version returns the current ledger read-model version.
func (s *LedgerStore) Version(ctx context.Context) (int64, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM ledger_meta WHERE id = 1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read ledger version: %w", err)
	}
	return version, nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE ledger_meta SET version = version + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("failed to bump ledger version: %w", err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM ledger_meta WHERE id = 1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read ledger version: %w", err)
	}
	return version, nil
}

// AppendRealised appends one realised-history record.
func (s *LedgerStore) AppendRealised(ctx context.Context, rp *models.RealisedPosition) (int64, error) {
	id, err := insertRealised(ctx, s.db, rp)
	if err != nil {
		return 0, err
	}
	rp.ID = id
	return id, nil
}

type execContexter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertRealised(ctx context.Context, ex execContexter, rp *models.RealisedPosition) (int64, error) {
	const query = `
	INSERT INTO realised (symbol, sector, account, buy_date, sell_date, buy_price, sell_price, qty,
	                      note, tradevalue, market_value, total_pnl, pct_pnl, tvm, pos_age)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := ex.ExecContext(ctx, query,
		rp.Symbol, rp.Sector, rp.Account, rp.BuyDate.String(), rp.SellDate.String(),
		rp.BuyPrice, rp.SellPrice, rp.Qty, rp.Note,
		rp.TradeValue, rp.MarketValue, rp.TotalPnL,
		nullableMetric(rp.PctPnL), nullableMetric(rp.TVM), rp.PosAge)
	if err != nil {
		return 0, fmt.Errorf("failed to insert realised record for %s: %w", rp.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get realised ID for %s: %w", rp.Symbol, err)
	}
	return id, nil
}

// ListRealised returns realised history, most recent sale first.
func (s *LedgerStore) ListRealised(ctx context.Context) ([]*models.RealisedPosition, error) {
	const query = `
	SELECT id, symbol, sector, account, buy_date, sell_date, buy_price, sell_price, qty,
	       note, tradevalue, market_value, total_pnl, pct_pnl, tvm, pos_age
	FROM realised ORDER BY sell_date DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query realised history: %w", err)
	}
	defer rows.Close()

	var out []*models.RealisedPosition
	for rows.Next() {
		var rp models.RealisedPosition
		var buyDate, sellDate string
		var pctPnL, tvmVal sql.NullFloat64
		if err := rows.Scan(&rp.ID, &rp.Symbol, &rp.Sector, &rp.Account, &buyDate, &sellDate,
			&rp.BuyPrice, &rp.SellPrice, &rp.Qty, &rp.Note,
			&rp.TradeValue, &rp.MarketValue, &rp.TotalPnL, &pctPnL, &tvmVal, &rp.PosAge); err != nil {
			return nil, fmt.Errorf("failed to scan realised record: %w", err)
		}
		if rp.BuyDate, err = models.ParseDate(buyDate); err != nil {
			return nil, fmt.Errorf("realised %d has bad buy date: %w", rp.ID, err)
		}
		if rp.SellDate, err = models.ParseDate(sellDate); err != nil {
			return nil, fmt.Errorf("realised %d has bad sell date: %w", rp.ID, err)
		}
		rp.PctPnL = metricFromNullable(pctPnL)
		rp.TVM = metricFromNullable(tvmVal)
		out = append(out, &rp)
	}
	return out, rows.Err()
}

// nullableMetric maps an undefined metric to SQL NULL so the database never
// stores NaN.
func nullableMetric(m models.Metric) sql.NullFloat64 {
	if !m.IsDefined() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(m), Valid: true}
}

func metricFromNullable(v sql.NullFloat64) models.Metric {
	if !v.Valid {
		return models.Undefined()
	}
	return models.Metric(v.Float64)
}
