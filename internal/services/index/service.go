// Package index maintains the chain-linked, cash-flow-adjusted portfolio
// performance index over the append-only snapshot sequence.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/models"
)

// BaseIndexValue is the index value of the chronologically first snapshot.
const BaseIndexValue = 100.00

// Valuer supplies the live whole-portfolio aggregates the index chains on.
type Valuer interface {
	Summary(ctx context.Context, overrides map[string]float64) (*models.PortfolioSummary, error)
}

// Service implements interfaces.IndexService.
type Service struct {
	storage interfaces.StorageManager
	valuer  Valuer
	logger  *common.Logger

	// Snapshot appends are serialized: each snapshot's index is derived from
	// the immediately preceding one, so concurrent appends would corrupt
	// the chain.
	mu sync.Mutex
}

// NewService creates a new index service
func NewService(storage interfaces.StorageManager, valuer Valuer, logger *common.Logger) *Service {
	return &Service{storage: storage, valuer: valuer, logger: logger}
}

// TakeSnapshot appends one snapshot for the business date.
//
// The first snapshot is the base and gets index 100.00 by definition. Every
// later snapshot chains on the previous one:
//
//	index = prevIndex × marketValue / (prevMarketValue + netCashFlow)
//
// A deposit that moves market value by exactly its own amount leaves the
// index flat; only movement beyond the injected cash moves it.
func (s *Service) TakeSnapshot(ctx context.Context, businessDate models.Date, netCashFlow float64) (*models.PortfolioSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if businessDate.IsZero() {
		businessDate = models.Today()
	}

	summary, err := s.valuer.Summary(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to value portfolio: %w", err)
	}
	if len(summary.Unpriced) > 0 {
		// Baking a price gap into the permanent chain would understate the
		// portfolio forever; surface it instead.
		return nil, models.NewConsistencyError("snapshot", models.ErrPriceUnavailable,
			"unpriced symbols %v", summary.Unpriced)
	}

	snap := &models.PortfolioSnapshot{
		BusinessDate:   businessDate,
		MarketValue:    summary.TotalMarketValue,
		TotalCostValue: summary.TotalCost,
		TotalPnL:       summary.OverallPnL,
		NetCashFlow:    models.Round2(netCashFlow),
	}

	prev, err := s.storage.Snapshots().Latest(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		snap.IndexValue = BaseIndexValue
	case err != nil:
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	default:
		if !businessDate.After(prev.BusinessDate) {
			return nil, models.NewConsistencyError("snapshot", nil,
				"business date %s is not after the latest snapshot %s", businessDate, prev.BusinessDate)
		}
		idx, err := chain(prev.IndexValue, prev.MarketValue, snap.MarketValue, netCashFlow)
		if err != nil {
			return nil, err
		}
		snap.IndexValue = idx
	}

	if err := s.storage.Snapshots().Append(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	s.logger.Info().
		Str("business_date", snap.BusinessDate.String()).
		Float64("index", snap.IndexValue).
		Float64("market_value", snap.MarketValue).
		Float64("net_cash_flow", snap.NetCashFlow).
		Msg("Snapshot taken")

	return snap, nil
}

// LiveEstimate recomputes the index against the current live market value
// without appending anything. Callable any number of times per day.
func (s *Service) LiveEstimate(ctx context.Context, netCashFlow float64) (*models.LiveIndexEstimate, error) {
	summary, err := s.valuer.Summary(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to value portfolio: %w", err)
	}

	estimate := &models.LiveIndexEstimate{
		IndexValue:   models.Undefined(),
		MarketValue:  summary.TotalMarketValue,
		NetCashFlow:  models.Round2(netCashFlow),
		BusinessDate: models.Today(),
		Unpriced:     summary.Unpriced,
	}

	prev, err := s.storage.Snapshots().Latest(ctx)
	if errors.Is(err, models.ErrNotFound) {
		// No base yet — there is nothing to chain from.
		return estimate, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}

	idx, err := chain(prev.IndexValue, prev.MarketValue, summary.TotalMarketValue, netCashFlow)
	if err != nil {
		return nil, err
	}
	estimate.IndexValue = models.Metric(idx)
	estimate.BaseDate = prev.BusinessDate
	return estimate, nil
}

// History returns all snapshots in business-date order.
func (s *Service) History(ctx context.Context) ([]*models.PortfolioSnapshot, error) {
	return s.storage.Snapshots().List(ctx)
}

// chain applies the cash-flow-adjusted link. The degenerate divisor
// prevMV + flow = 0 is rejected, never coerced to an undefined index.
func chain(prevIndex, prevMarketValue, marketValue, netCashFlow float64) (float64, error) {
	divisor := prevMarketValue + netCashFlow
	if divisor == 0 {
		return 0, models.NewConsistencyError("index", nil,
			"degenerate divisor: previous market value %v plus cash flow %v is zero", prevMarketValue, netCashFlow)
	}
	return models.Round2(prevIndex * marketValue / divisor), nil
}
