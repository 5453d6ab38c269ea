// Package query is the stateless sort/filter/group layer over revalued open
// positions. It holds no state between calls; the caller passes the full
// view configuration every time.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/absingh/folio/internal/models"
)

// fieldKind tells the comparator whether to compare numerically or as
// case-insensitive text.
type fieldKind int

const (
	kindNumeric fieldKind = iota
	kindText
)

// accessor extracts one sortable/groupable field from a position. The field
// set is closed: unknown keys are rejected rather than silently ignored.
type accessor struct {
	kind fieldKind
	num  func(p *models.OpenPosition) float64
	str  func(p *models.OpenPosition) string
}

var fields = map[string]accessor{
	"symbol":  {kind: kindText, str: func(p *models.OpenPosition) string { return p.Symbol }},
	"ticker":  {kind: kindText, str: func(p *models.OpenPosition) string { return p.Ticker }},
	"sector":  {kind: kindText, str: func(p *models.OpenPosition) string { return p.Sector }},
	"account": {kind: kindText, str: func(p *models.OpenPosition) string { return p.Account }},

	"totalQty":     {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.TotalQty) }},
	"avgPrice":     {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return p.AvgPrice }},
	"costValue":    {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return p.CostValue }},
	"currentPrice": {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.CurrentPrice) }},
	"marketValue":  {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.MarketValue) }},
	"pnl":          {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.PnL) }},
	"pct_pnl":      {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.PctPnL) }},
	"daily_change": {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.DailyChange) }},
	"daily_pnl":    {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.DailyPnL) }},
	"tradevalue":   {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return p.TradeValue }},
	"total_pnl":    {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.TotalPnL) }},
	"pos_age":      {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.PosAge) }},
	"tvm":          {kind: kindNumeric, num: func(p *models.OpenPosition) float64 { return float64(p.TVM) }},
}

// KnownField reports whether name is in the closed accessor set.
func KnownField(name string) bool {
	_, ok := fields[name]
	return ok
}

// Apply filters and sorts positions per the view. Filters are a conjunction:
// substring match on symbol and account (case-insensitive) and a strict-sign
// P&L filter on total P&L. The sort is stable so ties keep their prior
// relative order; there is no secondary sort key.
func Apply(positions []models.OpenPosition, view models.ViewConfig) ([]models.OpenPosition, error) {
	if !models.ValidPnLFilter(view.PnL) {
		return nil, models.NewValidationError("pnl", "unknown filter %q", view.PnL)
	}

	out := make([]models.OpenPosition, 0, len(positions))
	for _, p := range positions {
		if !matches(&p, view) {
			continue
		}
		out = append(out, p)
	}

	if view.SortKey == "" {
		return out, nil
	}
	acc, ok := fields[view.SortKey]
	if !ok {
		return nil, fmt.Errorf("sort key %q: %w", view.SortKey, models.ErrUnknownField)
	}

	sort.SliceStable(out, func(i, j int) bool {
		less := lessBy(acc, &out[i], &out[j])
		if view.SortAsc {
			return less
		}
		return lessBy(acc, &out[j], &out[i])
	})

	return out, nil
}

func matches(p *models.OpenPosition, view models.ViewConfig) bool {
	if s := strings.TrimSpace(view.SymbolSearch); s != "" {
		if !strings.Contains(strings.ToLower(p.Symbol), strings.ToLower(s)) {
			return false
		}
	}
	if s := strings.TrimSpace(view.AccountSearch); s != "" {
		if !strings.Contains(strings.ToLower(p.Account), strings.ToLower(s)) {
			return false
		}
	}
	switch view.PnL {
	case models.PnLPositive:
		// NaN total P&L (unpriced position) matches neither sign, as does
		// exactly zero.
		return float64(p.TotalPnL) > 0
	case models.PnLNegative:
		return float64(p.TotalPnL) < 0
	}
	return true
}

// lessBy compares a single field. NaN never sorts less than anything, which
// leaves unpriced positions in their prior stable order.
func lessBy(acc accessor, a, b *models.OpenPosition) bool {
	if acc.kind == kindNumeric {
		return acc.num(a) < acc.num(b)
	}
	return strings.ToLower(acc.str(a)) < strings.ToLower(acc.str(b))
}

// UncategorizedKey is the bucket for positions missing the grouping field.
const UncategorizedKey = "Uncategorized"

// Grouped is a partition of positions keyed by a field value. Keys preserves
// first-seen order, not lexical order.
type Grouped struct {
	Keys   []string
	Groups map[string][]models.OpenPosition
}

// Group partitions positions by the named field. Positions with a blank
// value fall into the Uncategorized bucket. Unknown fields are an error.
func Group(positions []models.OpenPosition, field string) (*Grouped, error) {
	acc, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("group key %q: %w", field, models.ErrUnknownField)
	}
	if acc.kind != kindText {
		return nil, models.NewValidationError("group_by", "field %q is not groupable", field)
	}

	g := &Grouped{Groups: make(map[string][]models.OpenPosition)}
	for _, p := range positions {
		key := acc.str(&p)
		if strings.TrimSpace(key) == "" {
			key = UncategorizedKey
		}
		if _, seen := g.Groups[key]; !seen {
			g.Keys = append(g.Keys, key)
		}
		g.Groups[key] = append(g.Groups[key], p)
	}
	return g, nil
}
