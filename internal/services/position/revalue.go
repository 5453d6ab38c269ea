package position

import (
	"math"

	"github.com/absingh/folio/internal/models"
)

// Revalue applies a price quote to an aggregated position skeleton and
// returns the fully valued position. Pure function: the same skeleton, quote
// and as-of date always produce the same output, so manual override
// repricing is idempotent and re-enterable without drift.
//
// When the quote is unavailable every price-derived field is left undefined
// (NaN, reported as JSON null) rather than zero, so a data gap is never
// mistaken for a total loss.
func Revalue(p models.OpenPosition, quote models.PriceQuote, asOf models.Date) models.OpenPosition {
	if !p.FirstBuyDate.IsZero() && !asOf.IsZero() {
		p.PosAge = asOf.DaysSince(p.FirstBuyDate)
		if p.PosAge < 0 {
			p.PosAge = 0
		}
	}

	if !quote.Available {
		p.PriceAvailable = false
		p.CurrentPrice = models.Undefined()
		p.MarketValue = models.Undefined()
		p.PnL = models.Undefined()
		p.PctPnL = models.Undefined()
		p.DailyChange = models.Undefined()
		p.DailyPnL = models.Undefined()
		p.TVM = models.Undefined()
		// Unrealized leg is unknown, so lifetime P&L is unknown too.
		p.TotalPnL = models.Undefined()
		return p
	}

	p.PriceAvailable = true
	price := quote.Price
	marketValue := price * float64(p.TotalQty)
	pnl := marketValue - p.CostValue

	p.CurrentPrice = models.Metric(models.Round2(price))
	p.MarketValue = models.Metric(models.Round2(marketValue))
	p.PnL = models.Metric(models.Round2(pnl))

	if p.CostValue == 0 {
		p.PctPnL = models.Undefined()
	} else {
		p.PctPnL = models.Metric(models.Round2(pnl / p.CostValue * 100))
	}

	if quote.PrevClose > 0 {
		change := price - quote.PrevClose
		p.DailyChange = models.Metric(models.Round2(change))
		p.DailyPnL = models.Metric(models.Round2(change * float64(p.TotalQty)))
	} else {
		p.DailyChange = models.Undefined()
		p.DailyPnL = models.Undefined()
	}

	p.TotalPnL = models.Metric(models.Round2(p.RealisedPnL + pnl))
	p.TVM = tvm(p.PctPnL, p.PosAge)

	return p
}

// tvm is the return-velocity metric: percentage P&L normalized to a year of
// holding. Positions younger than a day count as one day old so a same-day
// gain is not divided by zero.
func tvm(pctPnL models.Metric, posAge int) models.Metric {
	if !pctPnL.IsDefined() {
		return models.Undefined()
	}
	days := math.Max(float64(posAge), 1)
	return models.Metric(models.Round2(float64(pctPnL) / days * 365))
}
