// Package models defines data structures for Folio
package models

import "strings"

// TradeLot is one buy transaction, the atomic unit of the ledger. Lots are
// append-only: a sale never deletes a lot, it only sets the sell terms.
type TradeLot struct {
	ID       int64  `json:"id"`
	Symbol   string `json:"symbol"`
	Ticker   string `json:"ticker,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Account  string `json:"account,omitempty"`
	BuyDate  Date   `json:"buy_date"`
	BuyPrice float64 `json:"buy_price"`
	Qty      int64  `json:"qty"`
	Note     string `json:"note,omitempty"`
	Strategy string `json:"strategy,omitempty"`

	// Sell terms. Both unset while the lot is open.
	SellDate  Date    `json:"sell_date,omitempty"`
	SellPrice float64 `json:"sell_price,omitempty"`
}

// Open reports whether the lot has not been sold.
func (l *TradeLot) Open() bool { return l.SellDate.IsZero() }

// NormalizeSymbol upper-cases and trims a symbol the way the ledger stores it.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PositionKey identifies one aggregated position. Account is part of the key:
// the same symbol held in two accounts is two positions.
type PositionKey struct {
	Symbol  string `json:"symbol"`
	Account string `json:"account"`
}

// OpenPosition is the merged view of all open lots for one (symbol, account).
// Derived, never stored. Skeleton fields come from aggregation; valuation
// fields are filled by revaluation and are undefined (JSON null) when no
// price is known.
type OpenPosition struct {
	Symbol  string `json:"symbol"`
	Ticker  string `json:"ticker,omitempty"`
	Sector  string `json:"sector,omitempty"`
	Account string `json:"account,omitempty"`

	TotalQty  int64   `json:"totalQty"`
	AvgPrice  float64 `json:"avgPrice"`
	CostValue float64 `json:"costValue"`

	// TradeValue is the cumulative buy notional carried from the ledger.
	TradeValue float64 `json:"tradevalue"`
	// RealisedPnL is the lifetime realized P&L already booked for this key.
	RealisedPnL float64 `json:"realised_pnl"`

	FirstBuyDate Date    `json:"first_buy_date"`
	LotIDs       []int64 `json:"-"`

	// Valuation fields — computed by revaluation, not persisted.
	PriceAvailable bool   `json:"price_available"`
	CurrentPrice   Metric `json:"currentPrice"`
	MarketValue    Metric `json:"marketValue"`
	PnL            Metric `json:"pnl"`
	PctPnL         Metric `json:"pct_pnl"`
	DailyChange    Metric `json:"daily_change"`
	DailyPnL       Metric `json:"daily_pnl"`
	TotalPnL       Metric `json:"total_pnl"`
	PosAge         int    `json:"pos_age"`
	TVM            Metric `json:"tvm"`
}

// Key returns the position's aggregation key.
func (p *OpenPosition) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, Account: p.Account}
}

// RealisedPosition is the permanent record of a position closed in full.
// Created exactly once at the moment of sale and immutable thereafter.
type RealisedPosition struct {
	ID        int64   `json:"id"`
	Symbol    string  `json:"symbol"`
	Sector    string  `json:"sector,omitempty"`
	Account   string  `json:"account,omitempty"`
	BuyDate   Date    `json:"buy_date"`
	SellDate  Date    `json:"sell_date"`
	BuyPrice  float64 `json:"buy_price"` // average cost at the moment of sale
	SellPrice float64 `json:"sell_price"`
	Qty       int64   `json:"qty"`
	Note      string  `json:"note,omitempty"`

	TradeValue  float64 `json:"tradevalue"`
	MarketValue float64 `json:"market_value"` // sell proceeds
	TotalPnL    float64 `json:"total_pnl"`
	PctPnL      Metric  `json:"pct_pnl"`
	TVM         Metric  `json:"tvm"`
	PosAge      int     `json:"pos_age"`
}

// PortfolioSnapshot is a dated, immutable record of whole-portfolio value.
// The chronologically first snapshot is the base: index value 100.00.
type PortfolioSnapshot struct {
	BusinessDate   Date    `json:"business_date"`
	IndexValue     float64 `json:"portfolio_index_value"`
	MarketValue    float64 `json:"market_value"`
	TotalCostValue float64 `json:"total_cost_value"`
	TotalPnL       float64 `json:"total_pnl"`
	NetCashFlow    float64 `json:"net_cash_flow_today"`
}

// DividendRecord is one dividend disbursement. Read-only input to the
// dividend aggregator.
type DividendRecord struct {
	ID                 int64   `json:"id"`
	Ticker             string  `json:"ticker"`
	Sector             string  `json:"sector,omitempty"`
	DateOfDisbursement Date    `json:"date_of_disbursement"`
	RsPerShare         float64 `json:"rs_per_share"`
	Qty                int64   `json:"qty"`
	Amount             float64 `json:"amount"`
}

// EffectiveAmount returns the recorded amount, falling back to
// rs_per_share × qty when the amount was not supplied.
func (d *DividendRecord) EffectiveAmount() float64 {
	if d.Amount != 0 {
		return d.Amount
	}
	return d.RsPerShare * float64(d.Qty)
}

// PriceQuote is the price source's answer for one symbol.
type PriceQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	Available bool    `json:"available"`
}

// PortfolioSummary aggregates the whole open set, with per-account buckets.
// Positions without a known price are excluded from the value totals rather
// than counted as zero.
type PortfolioSummary struct {
	TotalCost        float64            `json:"total_cost"`
	TotalMarketValue float64            `json:"total_market_value"`
	TodayPnL         float64            `json:"today_pnl"`
	OverallPnL       float64            `json:"overall_pnl"`
	PnLByAccount     map[string]float64 `json:"pnl_by_account"`
	DailyPnLByAccount map[string]float64 `json:"daily_pnl_by_account"`
	Unpriced         []string           `json:"unpriced_symbols,omitempty"`
}

// SellResult reports the outcome of closing a position.
type SellResult struct {
	Realised *RealisedPosition `json:"realised"`
	// PendingRefresh is set when the post-sale re-read still observed the
	// position as open (the ledger read model had not caught up yet).
	PendingRefresh bool `json:"pending_refresh"`
	LedgerVersion  int64 `json:"ledger_version"`
}

// SimulationResult is the what-if blended position after a hypothetical buy.
type SimulationResult struct {
	Symbol            string  `json:"symbol"`
	Account           string  `json:"account,omitempty"`
	SimulatedQty      int64   `json:"simulated_qty"`
	SimulatedAvgPrice float64 `json:"simulated_avg_price"`
}
