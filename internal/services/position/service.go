// Package position aggregates trade lots into open positions, revalues them
// against the price store, and runs the sell lifecycle.
package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/models"
	"github.com/absingh/folio/internal/query"
)

// Service implements interfaces.PositionService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	// now is stubbed in tests for deterministic pos_age math.
	now func() models.Date
}

// NewService creates a new position service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     models.Today,
	}
}

// OpenPositions reads the open lots, aggregates and revalues them, and
// applies the view's filter/sort. Returns the ledger version the read
// observed so callers can detect stale read models after a write.
func (s *Service) OpenPositions(ctx context.Context, view models.ViewConfig) ([]models.OpenPosition, int64, error) {
	positions, version, err := s.revaluedPositions(ctx, view.PriceOverrides)
	if err != nil {
		return nil, 0, err
	}

	positions, err = query.Apply(positions, view)
	if err != nil {
		return nil, 0, err
	}

	return positions, version, nil
}

// revaluedPositions builds the full revalued open set with no view applied.
func (s *Service) revaluedPositions(ctx context.Context, overrides map[string]float64) ([]models.OpenPosition, int64, error) {
	lots, version, err := s.storage.Ledger().ListOpenLots(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read open lots: %w", err)
	}

	skeletons, err := Aggregate(lots)
	if err != nil {
		return nil, 0, err
	}

	realisedBy, err := s.realisedPnLByKey(ctx)
	if err != nil {
		return nil, 0, err
	}

	asOf := s.now()
	out := make([]models.OpenPosition, 0, len(skeletons))
	for _, skel := range skeletons {
		skel.RealisedPnL = realisedBy[skel.Key()]
		quote := s.quoteFor(ctx, skel.Symbol, overrides)
		out = append(out, Revalue(skel, quote, asOf))
	}

	return out, version, nil
}

// quoteFor resolves the price for a symbol: manual override first, then the
// price store. An unknown symbol yields an unavailable quote, never zero.
func (s *Service) quoteFor(ctx context.Context, symbol string, overrides map[string]float64) models.PriceQuote {
	stored, err := s.storage.Prices().Quote(ctx, symbol)
	if err != nil && !errors.Is(err, models.ErrPriceUnavailable) {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
	}

	if override, ok := overrides[symbol]; ok && override > 0 {
		// Keep the stored previous close so daily change stays meaningful
		// under a what-if price.
		return models.PriceQuote{
			Symbol:    symbol,
			Price:     override,
			PrevClose: stored.PrevClose,
			Available: true,
		}
	}
	if err != nil {
		return models.PriceQuote{Symbol: symbol, Available: false}
	}
	return stored
}

func (s *Service) realisedPnLByKey(ctx context.Context) (map[models.PositionKey]float64, error) {
	realised, err := s.storage.Ledger().ListRealised(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read realised history: %w", err)
	}
	byKey := make(map[models.PositionKey]float64, len(realised))
	for _, rp := range realised {
		key := models.PositionKey{Symbol: rp.Symbol, Account: rp.Account}
		byKey[key] += rp.TotalPnL
	}
	return byKey, nil
}

// Summary aggregates the whole open set: value totals plus lifetime and
// daily P&L bucketed by account. Positions without a known price are listed
// as unpriced and excluded from the totals.
func (s *Service) Summary(ctx context.Context, overrides map[string]float64) (*models.PortfolioSummary, error) {
	positions, _, err := s.revaluedPositions(ctx, overrides)
	if err != nil {
		return nil, err
	}

	summary := &models.PortfolioSummary{
		PnLByAccount:      make(map[string]float64),
		DailyPnLByAccount: make(map[string]float64),
	}

	for _, pos := range positions {
		summary.TotalCost += pos.CostValue

		if !pos.PriceAvailable {
			summary.Unpriced = append(summary.Unpriced, pos.Symbol)
			continue
		}

		account := pos.Account
		if account == "" {
			account = query.UncategorizedKey
		}

		summary.TotalMarketValue += float64(pos.MarketValue)
		summary.OverallPnL += float64(pos.PnL)
		summary.PnLByAccount[account] += float64(pos.PnL)
		if pos.DailyPnL.IsDefined() {
			summary.TodayPnL += float64(pos.DailyPnL)
			summary.DailyPnLByAccount[account] += float64(pos.DailyPnL)
		}
	}

	summary.TotalCost = models.Round2(summary.TotalCost)
	summary.TotalMarketValue = models.Round2(summary.TotalMarketValue)
	summary.TodayPnL = models.Round2(summary.TodayPnL)
	summary.OverallPnL = models.Round2(summary.OverallPnL)
	for k, v := range summary.PnLByAccount {
		summary.PnLByAccount[k] = models.Round2(v)
	}
	for k, v := range summary.DailyPnLByAccount {
		summary.DailyPnLByAccount[k] = models.Round2(v)
	}

	return summary, nil
}

// AddLot validates and appends one buy lot to the ledger.
func (s *Service) AddLot(ctx context.Context, lot *models.TradeLot) (int64, error) {
	lot.Symbol = models.NormalizeSymbol(lot.Symbol)
	if lot.Symbol == "" {
		return 0, models.NewValidationError("symbol", "is required")
	}
	if lot.Qty <= 0 {
		return 0, models.NewValidationError("qty", "must be positive, got %d", lot.Qty)
	}
	if lot.BuyPrice <= 0 {
		return 0, models.NewValidationError("buy_price", "must be positive, got %v", lot.BuyPrice)
	}
	if lot.BuyDate.IsZero() {
		lot.BuyDate = s.now()
	}

	id, err := s.storage.Ledger().AddLot(ctx, lot)
	if err != nil {
		return 0, fmt.Errorf("failed to append lot: %w", err)
	}

	s.logger.Info().
		Str("symbol", lot.Symbol).
		Int64("qty", lot.Qty).
		Float64("price", lot.BuyPrice).
		Msg("Lot added")

	return id, nil
}

// Simulate computes the blended average price after a hypothetical
// additional buy, without writing anything.
func (s *Service) Simulate(ctx context.Context, symbol, account string, qty int64, price float64) (*models.SimulationResult, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, models.NewValidationError("symbol", "is required")
	}
	if qty <= 0 {
		return nil, models.NewValidationError("qty", "must be positive, got %d", qty)
	}
	if price <= 0 {
		return nil, models.NewValidationError("price", "must be positive, got %v", price)
	}

	lots, _, err := s.storage.Ledger().ListOpenLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read open lots: %w", err)
	}

	existingQty := int64(0)
	existingCost := 0.0
	for _, lot := range lots {
		if models.NormalizeSymbol(lot.Symbol) != symbol || lot.Account != account || lot.Qty <= 0 {
			continue
		}
		existingQty += lot.Qty
		existingCost += float64(lot.Qty) * lot.BuyPrice
	}

	totalQty := existingQty + qty
	totalCost := existingCost + float64(qty)*price

	return &models.SimulationResult{
		Symbol:            symbol,
		Account:           account,
		SimulatedQty:      totalQty,
		SimulatedAvgPrice: models.Round2(totalCost / float64(totalQty)),
	}, nil
}

// Realised lists the realised history, newest sale first.
func (s *Service) Realised(ctx context.Context) ([]*models.RealisedPosition, error) {
	return s.storage.Ledger().ListRealised(ctx)
}
