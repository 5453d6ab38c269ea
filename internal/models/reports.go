package models

// LiveIndexEstimate is the un-persisted intra-day index recomputation.
type LiveIndexEstimate struct {
	IndexValue   Metric  `json:"live_portfolio_index_value"`
	MarketValue  float64 `json:"market_value"`
	NetCashFlow  float64 `json:"net_cash_flow_today"`
	BusinessDate Date    `json:"business_date"`
	// BaseDate is the business date of the snapshot the estimate chains
	// from; unset when no snapshot exists yet.
	BaseDate Date `json:"base_date,omitempty"`
	// Unpriced lists symbols whose market value is missing from the
	// estimate. Unlike a snapshot, the estimate is still produced; the gap
	// is reported rather than rejected.
	Unpriced []string `json:"unpriced,omitempty"`
}

// DividendTotal is one bar of a dividend totals breakdown.
type DividendTotal struct {
	Key         string  `json:"key"`
	TotalAmount float64 `json:"total_amount"`
}

// DividendReport carries the three dividend totals the reporting page shows.
// ByTicker excludes the reserved carry-forward pseudo-ticker; the grand
// total includes it.
type DividendReport struct {
	ByTicker   []DividendTotal `json:"by_ticker"`
	ByYear     []DividendTotal `json:"by_year"`
	GrandTotal float64         `json:"total_dividend_earned"`
}

// DividendGroupRow is one row of the secondary client-side grouping.
type DividendGroupRow struct {
	Key         string  `json:"key"`
	TotalAmount float64 `json:"total_amount"`
	Count       int     `json:"count"`
}

// DividendRecords is the grouped-or-raw record listing. Exactly one of
// Groups and Raw is populated depending on the grouping choice.
type DividendRecords struct {
	GroupBy string             `json:"group_by"`
	Groups  []DividendGroupRow `json:"groups,omitempty"`
	Raw     []*DividendRecord  `json:"records,omitempty"`
}
