package position

import (
	"context"
	"fmt"

	"github.com/absingh/folio/internal/models"
)

// Sell closes an open position in full: one RealisedPosition is emitted and
// every contributing lot is marked sold at the given terms. There are no
// partial sells — the whole aggregated quantity closes at a single
// date/price pair.
//
// The lot update is at-most-once: if another caller already sold the
// position, MarkSold fails with a ConsistencyError and nothing is written.
// A failed validation leaves the position untouched.
func (s *Service) Sell(ctx context.Context, symbol, account string, sellDate models.Date, sellPrice float64) (*models.SellResult, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, models.NewValidationError("symbol", "is required")
	}
	if sellDate.IsZero() {
		return nil, models.NewValidationError("sell_date", "is required")
	}
	if sellPrice <= 0 {
		return nil, models.NewValidationError("sell_price", "must be positive, got %v", sellPrice)
	}

	lots, _, err := s.storage.Ledger().ListOpenLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read open lots: %w", err)
	}
	positions, err := Aggregate(lots)
	if err != nil {
		return nil, err
	}

	var pos *models.OpenPosition
	for i := range positions {
		if positions[i].Symbol == symbol && positions[i].Account == account {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return nil, models.NewConsistencyError("sell", models.ErrNotFound,
			"no open position for %s/%s", symbol, account)
	}
	if sellDate.Before(pos.FirstBuyDate) {
		return nil, models.NewValidationError("sell_date",
			"%s is before the first buy date %s", sellDate, pos.FirstBuyDate)
	}

	realised := buildRealised(pos, sellDate, sellPrice)

	// The sell-mark and the realised record land in one transaction: the CAS
	// on the lots decides which of two racing sellers wins, and a failed
	// realised insert rolls the marks back rather than stranding sold lots
	// with no history entry.
	writeVersion, err := s.storage.Ledger().FinalizeSale(ctx, pos.LotIDs, sellDate, sellPrice, realised)
	if err != nil {
		return nil, err
	}

	result := &models.SellResult{Realised: realised, LedgerVersion: writeVersion}

	// The ledger does not promise read-after-write consistency. Re-read and
	// report a pending refresh instead of treating a stale view as failure.
	reread, readVersion, err := s.storage.Ledger().ListOpenLots(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Post-sale re-read failed")
		result.PendingRefresh = true
		return result, nil
	}
	if readVersion < writeVersion {
		result.PendingRefresh = true
	} else {
		for _, lot := range reread {
			if models.NormalizeSymbol(lot.Symbol) == symbol && lot.Account == account && lot.Qty > 0 {
				result.PendingRefresh = true
				break
			}
		}
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("account", account).
		Int64("qty", realised.Qty).
		Float64("sell_price", sellPrice).
		Bool("pending_refresh", result.PendingRefresh).
		Msg("Position realised")

	return result, nil
}

// buildRealised freezes the aggregated position at the moment of sale.
// Realised P&L is computed against the unrounded total cost so the sale
// figures reconcile exactly with the aggregation that produced them.
func buildRealised(pos *models.OpenPosition, sellDate models.Date, sellPrice float64) *models.RealisedPosition {
	proceeds := sellPrice * float64(pos.TotalQty)
	pnl := proceeds - pos.CostValue

	pctPnL := models.Undefined()
	if pos.CostValue != 0 {
		pctPnL = models.Metric(models.Round2(pnl / pos.CostValue * 100))
	}

	posAge := sellDate.DaysSince(pos.FirstBuyDate)
	if posAge < 0 {
		posAge = 0
	}

	return &models.RealisedPosition{
		Symbol:      pos.Symbol,
		Sector:      pos.Sector,
		Account:     pos.Account,
		BuyDate:     pos.FirstBuyDate,
		SellDate:    sellDate,
		BuyPrice:    models.Round2(pos.AvgPrice),
		SellPrice:   models.Round2(sellPrice),
		Qty:         pos.TotalQty,
		TradeValue:  models.Round2(pos.TradeValue),
		MarketValue: models.Round2(proceeds),
		TotalPnL:    models.Round2(pnl),
		PctPnL:      pctPnL,
		TVM:         tvm(pctPnL, posAge),
		PosAge:      posAge,
	}
}
