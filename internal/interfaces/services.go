package interfaces

import (
	"context"

	"github.com/absingh/folio/internal/models"
)

// PositionService aggregates lots into positions, revalues them, and runs
// the sell lifecycle.
type PositionService interface {
	// OpenPositions returns the revalued open set filtered and sorted per
	// the view, plus the ledger version the read observed.
	OpenPositions(ctx context.Context, view models.ViewConfig) ([]models.OpenPosition, int64, error)

	// Summary aggregates the whole open set with per-account P&L buckets.
	Summary(ctx context.Context, overrides map[string]float64) (*models.PortfolioSummary, error)

	// AddLot validates and appends a buy lot.
	AddLot(ctx context.Context, lot *models.TradeLot) (int64, error)

	// Sell closes a position in full at the given terms.
	Sell(ctx context.Context, symbol, account string, sellDate models.Date, sellPrice float64) (*models.SellResult, error)

	// Simulate computes the blended average after a hypothetical extra buy.
	Simulate(ctx context.Context, symbol, account string, qty int64, price float64) (*models.SimulationResult, error)

	// Realised lists realised history, newest sale first.
	Realised(ctx context.Context) ([]*models.RealisedPosition, error)
}

// IndexService maintains the chain-linked, cash-flow-adjusted portfolio
// index.
type IndexService interface {
	// TakeSnapshot appends one snapshot for the business date. Serialized:
	// one append at a time.
	TakeSnapshot(ctx context.Context, businessDate models.Date, netCashFlow float64) (*models.PortfolioSnapshot, error)

	// LiveEstimate recomputes the index against the current market value
	// without persisting anything. Repeatable and side-effect free.
	LiveEstimate(ctx context.Context, netCashFlow float64) (*models.LiveIndexEstimate, error)

	// History returns all snapshots in business-date order.
	History(ctx context.Context) ([]*models.PortfolioSnapshot, error)

	// RenderChart renders the index history as a PNG line chart.
	RenderChart(ctx context.Context) ([]byte, error)
}

// DividendService aggregates dividend records for reporting.
type DividendService interface {
	Report(ctx context.Context) (*models.DividendReport, error)
	Records(ctx context.Context, groupBy, search string) (*models.DividendRecords, error)
	Add(ctx context.Context, rec *models.DividendRecord) (int64, error)
}
