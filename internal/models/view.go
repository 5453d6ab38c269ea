package models

// PnLFilter selects positions by the sign of their total P&L. Zero P&L
// matches neither Positive nor Negative.
type PnLFilter string

const (
	PnLAll      PnLFilter = "all"
	PnLPositive PnLFilter = "positive"
	PnLNegative PnLFilter = "negative"
)

// ValidPnLFilter reports whether f is a known filter value.
func ValidPnLFilter(f PnLFilter) bool {
	switch f {
	case PnLAll, PnLPositive, PnLNegative, "":
		return true
	}
	return false
}

// ViewConfig is the immutable per-call query configuration: search terms,
// P&L filter, the single active sort key, and the grouping field. Engines
// never keep view state between calls; the caller passes the full view on
// every request.
type ViewConfig struct {
	SymbolSearch  string    `json:"symbol_search,omitempty"`
	AccountSearch string    `json:"account_search,omitempty"`
	PnL           PnLFilter `json:"pnl,omitempty"`

	SortKey string `json:"sort_key,omitempty"`
	SortAsc bool   `json:"sort_asc"`

	GroupBy string `json:"group_by,omitempty"`

	// PriceOverrides maps symbol to a manual what-if price. Overrides are
	// applied per call and never persisted.
	PriceOverrides map[string]float64 `json:"price_overrides,omitempty"`
}

// NextSort returns the view after selecting a sort key: selecting the active
// key flips direction, selecting a new key resets to ascending.
func (v ViewConfig) NextSort(key string) ViewConfig {
	if v.SortKey == key {
		v.SortAsc = !v.SortAsc
		return v
	}
	v.SortKey = key
	v.SortAsc = true
	return v
}
