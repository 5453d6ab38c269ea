package position

import (
	"github.com/absingh/folio/internal/models"
)

// Aggregate folds open lots into one position skeleton per (symbol, account).
// Skeletons carry the aggregation fields only; valuation fields are filled by
// Revalue. Output order is first-seen lot order — presentation ordering is
// the query layer's job.
//
// Sector and ticker must be uniform within a group. A mismatch is a
// data-integrity failure reported to the caller, never resolved by guessing.
func Aggregate(lots []*models.TradeLot) ([]models.OpenPosition, error) {
	index := make(map[models.PositionKey]int)
	var out []models.OpenPosition

	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		// Zero/negative quantity rows are placeholders in the ledger, not
		// holdings.
		if lot.Qty <= 0 {
			continue
		}

		key := models.PositionKey{Symbol: models.NormalizeSymbol(lot.Symbol), Account: lot.Account}
		if key.Symbol == "" {
			return nil, models.NewValidationError("symbol", "lot %d has no symbol", lot.ID)
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, models.OpenPosition{
				Symbol:       key.Symbol,
				Ticker:       lot.Ticker,
				Sector:       lot.Sector,
				Account:      lot.Account,
				FirstBuyDate: lot.BuyDate,
			})
			i = len(out) - 1
		}

		pos := &out[i]
		if seen {
			if lot.Sector != pos.Sector {
				return nil, models.NewValidationError("sector",
					"position %s/%s mixes sectors %q and %q", key.Symbol, key.Account, pos.Sector, lot.Sector)
			}
			if lot.Ticker != pos.Ticker {
				return nil, models.NewValidationError("ticker",
					"position %s/%s mixes tickers %q and %q", key.Symbol, key.Account, pos.Ticker, lot.Ticker)
			}
			if !lot.BuyDate.IsZero() && (pos.FirstBuyDate.IsZero() || lot.BuyDate.Before(pos.FirstBuyDate)) {
				pos.FirstBuyDate = lot.BuyDate
			}
		}

		pos.TotalQty += lot.Qty
		pos.CostValue += float64(lot.Qty) * lot.BuyPrice
		pos.TradeValue += float64(lot.Qty) * lot.BuyPrice
		pos.LotIDs = append(pos.LotIDs, lot.ID)
	}

	for i := range out {
		pos := &out[i]
		// TotalQty > 0 holds by construction; qty-weighted average cost.
		pos.AvgPrice = pos.CostValue / float64(pos.TotalQty)
	}

	return out, nil
}
