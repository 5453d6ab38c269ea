// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/absingh/folio/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	Ledger() LedgerStore
	Snapshots() SnapshotStore
	Dividends() DividendStore
	Prices() PriceStore

	// Lifecycle
	Close() error
}

// LedgerStore owns the append-only trade-lot ledger and the realised history.
// Every mutation advances a monotonically increasing read-model version so
// callers can tell whether a subsequent read already reflects their write.
type LedgerStore interface {
	// AddLot appends a buy lot and returns its assigned ID.
	AddLot(ctx context.Context, lot *models.TradeLot) (int64, error)

	// ListOpenLots returns all unsold lots together with the ledger version
	// observed by the read.
	ListOpenLots(ctx context.Context) ([]*models.TradeLot, int64, error)

	// ListLots returns every lot, open and sold, ordered by buy date.
	ListLots(ctx context.Context) ([]*models.TradeLot, error)

	// MarkSold sets the sell terms on all given lots at once and returns the
	// resulting ledger version. At-most-once: if any lot already carries a
	// sell date the whole call fails with a ConsistencyError wrapping
	// models.ErrAlreadySold and no lot is modified.
	MarkSold(ctx context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64) (int64, error)

	// FinalizeSale marks the lots sold and appends the realised record in a
	// single transaction: either both land or neither does. The sell-mark
	// carries MarkSold's at-most-once guarantee.
	FinalizeSale(ctx context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64, rp *models.RealisedPosition) (int64, error)

	// Version returns the current ledger read-model version.
	Version(ctx context.Context) (int64, error)

	// AppendRealised appends one realised-history record.
	AppendRealised(ctx context.Context, rp *models.RealisedPosition) (int64, error)

	// ListRealised returns realised history, most recent sale first.
	ListRealised(ctx context.Context) ([]*models.RealisedPosition, error)
}

// SnapshotStore owns the append-only portfolio snapshot sequence.
type SnapshotStore interface {
	// Append stores a new snapshot. Business dates are unique; appending an
	// existing date fails.
	Append(ctx context.Context, snap *models.PortfolioSnapshot) error

	// List returns all snapshots ordered by business date ascending.
	List(ctx context.Context) ([]*models.PortfolioSnapshot, error)

	// Latest returns the most recent snapshot, or models.ErrNotFound when
	// no snapshot has been taken yet.
	Latest(ctx context.Context) (*models.PortfolioSnapshot, error)
}

// DividendStore supplies dividend disbursement records.
type DividendStore interface {
	Add(ctx context.Context, rec *models.DividendRecord) (int64, error)
	List(ctx context.Context) ([]*models.DividendRecord, error)
}

// PriceStore is the price source collaborator. The engine never fetches
// market data itself; it reads whatever the store last saw.
type PriceStore interface {
	// Quote returns the latest known price and previous close for a symbol.
	// Returns models.ErrPriceUnavailable when the symbol has no price.
	Quote(ctx context.Context, symbol string) (models.PriceQuote, error)

	// SetPrice records a new latest price, demoting the previous latest to
	// the prior close used for daily-change computation.
	SetPrice(ctx context.Context, symbol string, price float64) error
}
