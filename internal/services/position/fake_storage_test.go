package position

import (
	"context"
	"sort"

	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/models"
)

// fakeStorage is an in-memory StorageManager for service tests. The ledger
// version advances on every mutation, like the real adapter; tests can hold
// it back via versionLag to simulate a stale read model.
type fakeStorage struct {
	lots     []*models.TradeLot
	realised []*models.RealisedPosition
	snaps    []*models.PortfolioSnapshot
	divs     []*models.DividendRecord
	prices   map[string]models.PriceQuote

	version    int64
	versionLag int64
	nextID     int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{prices: make(map[string]models.PriceQuote)}
}

func (f *fakeStorage) Ledger() interfaces.LedgerStore       { return (*fakeLedger)(f) }
func (f *fakeStorage) Snapshots() interfaces.SnapshotStore  { return (*fakeSnapshots)(f) }
func (f *fakeStorage) Dividends() interfaces.DividendStore  { return (*fakeDividends)(f) }
func (f *fakeStorage) Prices() interfaces.PriceStore        { return (*fakePrices)(f) }
func (f *fakeStorage) Close() error                         { return nil }

func (f *fakeStorage) setPrice(symbol string, price, prevClose float64) {
	f.prices[symbol] = models.PriceQuote{Symbol: symbol, Price: price, PrevClose: prevClose, Available: true}
}

type fakeLedger fakeStorage

func (f *fakeLedger) AddLot(_ context.Context, lot *models.TradeLot) (int64, error) {
	f.nextID++
	lot.ID = f.nextID
	clone := *lot
	f.lots = append(f.lots, &clone)
	f.version++
	return lot.ID, nil
}

func (f *fakeLedger) ListOpenLots(context.Context) ([]*models.TradeLot, int64, error) {
	var open []*models.TradeLot
	for _, lot := range f.lots {
		if lot.Open() {
			clone := *lot
			open = append(open, &clone)
		}
	}
	return open, f.version - f.versionLag, nil
}

func (f *fakeLedger) ListLots(context.Context) ([]*models.TradeLot, error) {
	out := make([]*models.TradeLot, len(f.lots))
	for i, lot := range f.lots {
		clone := *lot
		out[i] = &clone
	}
	return out, nil
}

func (f *fakeLedger) MarkSold(_ context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64) (int64, error) {
	byID := make(map[int64]*models.TradeLot, len(f.lots))
	for _, lot := range f.lots {
		byID[lot.ID] = lot
	}
	for _, id := range lotIDs {
		lot, ok := byID[id]
		if !ok || !lot.Open() {
			return 0, models.NewConsistencyError("mark_sold", models.ErrAlreadySold,
				"lot %d is not open", id)
		}
	}
	for _, id := range lotIDs {
		byID[id].SellDate = sellDate
		byID[id].SellPrice = sellPrice
	}
	f.version++
	return f.version, nil
}

func (f *fakeLedger) FinalizeSale(ctx context.Context, lotIDs []int64, sellDate models.Date, sellPrice float64, rp *models.RealisedPosition) (int64, error) {
	version, err := f.MarkSold(ctx, lotIDs, sellDate, sellPrice)
	if err != nil {
		return 0, err
	}
	f.nextID++
	rp.ID = f.nextID
	clone := *rp
	f.realised = append(f.realised, &clone)
	return version, nil
}

func (f *fakeLedger) Version(context.Context) (int64, error) {
	return f.version - f.versionLag, nil
}

func (f *fakeLedger) AppendRealised(_ context.Context, rp *models.RealisedPosition) (int64, error) {
	f.nextID++
	rp.ID = f.nextID
	clone := *rp
	f.realised = append(f.realised, &clone)
	f.version++
	return rp.ID, nil
}

func (f *fakeLedger) ListRealised(context.Context) ([]*models.RealisedPosition, error) {
	out := make([]*models.RealisedPosition, len(f.realised))
	for i, rp := range f.realised {
		clone := *rp
		out[i] = &clone
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].SellDate.Before(out[i].SellDate)
	})
	return out, nil
}

type fakeSnapshots fakeStorage

func (f *fakeSnapshots) Append(_ context.Context, snap *models.PortfolioSnapshot) error {
	for _, existing := range f.snaps {
		if existing.BusinessDate.Equal(snap.BusinessDate) {
			return models.NewConsistencyError("snapshot", nil,
				"snapshot for %s already exists", snap.BusinessDate)
		}
	}
	clone := *snap
	f.snaps = append(f.snaps, &clone)
	return nil
}

func (f *fakeSnapshots) List(context.Context) ([]*models.PortfolioSnapshot, error) {
	out := make([]*models.PortfolioSnapshot, len(f.snaps))
	copy(out, f.snaps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BusinessDate.Before(out[j].BusinessDate)
	})
	return out, nil
}

func (f *fakeSnapshots) Latest(ctx context.Context) (*models.PortfolioSnapshot, error) {
	all, _ := f.List(ctx)
	if len(all) == 0 {
		return nil, models.ErrNotFound
	}
	return all[len(all)-1], nil
}

type fakeDividends fakeStorage

func (f *fakeDividends) Add(_ context.Context, rec *models.DividendRecord) (int64, error) {
	f.nextID++
	rec.ID = f.nextID
	clone := *rec
	f.divs = append(f.divs, &clone)
	return rec.ID, nil
}

func (f *fakeDividends) List(context.Context) ([]*models.DividendRecord, error) {
	out := make([]*models.DividendRecord, len(f.divs))
	copy(out, f.divs)
	return out, nil
}

type fakePrices fakeStorage

func (f *fakePrices) Quote(_ context.Context, symbol string) (models.PriceQuote, error) {
	quote, ok := f.prices[symbol]
	if !ok {
		return models.PriceQuote{}, models.ErrPriceUnavailable
	}
	return quote, nil
}

func (f *fakePrices) SetPrice(_ context.Context, symbol string, price float64) error {
	prev := f.prices[symbol]
	f.prices[symbol] = models.PriceQuote{Symbol: symbol, Price: price, PrevClose: prev.Price, Available: true}
	return nil
}
