// Package dividend aggregates dividend disbursement records for reporting.
package dividend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/models"
)

// Service implements interfaces.DividendService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	// reservedTicker is the pseudo-ticker for bulk carry-forward entries.
	// Excluded from by-ticker totals, included in the grand total.
	reservedTicker string
}

// NewService creates a new dividend service
func NewService(storage interfaces.StorageManager, reservedTicker string, logger *common.Logger) *Service {
	if reservedTicker == "" {
		reservedTicker = "HISTDIVIDENDS"
	}
	return &Service{storage: storage, reservedTicker: reservedTicker, logger: logger}
}

// Add validates and stores one dividend record, computing the amount from
// rs_per_share × qty when it was not supplied.
func (s *Service) Add(ctx context.Context, rec *models.DividendRecord) (int64, error) {
	rec.Ticker = models.NormalizeSymbol(rec.Ticker)
	if rec.Ticker == "" {
		return 0, models.NewValidationError("ticker", "is required")
	}
	if rec.DateOfDisbursement.IsZero() {
		return 0, models.NewValidationError("date_of_disbursement", "is required")
	}
	if rec.Amount == 0 {
		rec.Amount = rec.RsPerShare * float64(rec.Qty)
	}
	if rec.Amount <= 0 {
		return 0, models.NewValidationError("amount", "must be positive, got %v", rec.Amount)
	}
	return s.storage.Dividends().Add(ctx, rec)
}

// Report computes the three dividend totals: by ticker (reserved
// pseudo-ticker excluded), by year, and the grand total (pseudo-ticker
// included).
func (s *Service) Report(ctx context.Context) (*models.DividendReport, error) {
	records, err := s.storage.Dividends().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dividends: %w", err)
	}

	report := &models.DividendReport{}
	byTicker := make(map[string]float64)
	byYear := make(map[int]float64)

	for _, rec := range records {
		amount := rec.EffectiveAmount()
		report.GrandTotal += amount
		byYear[rec.DateOfDisbursement.Year()] += amount
		if rec.Ticker != s.reservedTicker {
			byTicker[rec.Ticker] += amount
		}
	}
	report.GrandTotal = models.Round2(report.GrandTotal)

	for ticker, total := range byTicker {
		report.ByTicker = append(report.ByTicker, models.DividendTotal{Key: ticker, TotalAmount: models.Round2(total)})
	}
	sort.Slice(report.ByTicker, func(i, j int) bool { return report.ByTicker[i].Key < report.ByTicker[j].Key })

	for year, total := range byYear {
		report.ByYear = append(report.ByYear, models.DividendTotal{Key: strconv.Itoa(year), TotalAmount: models.Round2(total)})
	}
	sort.Slice(report.ByYear, func(i, j int) bool { return report.ByYear[i].Key < report.ByYear[j].Key })

	return report, nil
}

// Records lists dividend records for the table view: an optional
// case-insensitive substring search on ticker, then either a grouped
// breakdown (ticker, sector or year) or the raw rows sorted by disbursement
// date descending.
func (s *Service) Records(ctx context.Context, groupBy, search string) (*models.DividendRecords, error) {
	switch groupBy {
	case "", "none", "ticker", "sector", "year":
	default:
		return nil, fmt.Errorf("dividend group %q: %w", groupBy, models.ErrUnknownField)
	}

	records, err := s.storage.Dividends().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dividends: %w", err)
	}

	if search = strings.TrimSpace(search); search != "" {
		filtered := records[:0]
		for _, rec := range records {
			if strings.Contains(strings.ToLower(rec.Ticker), strings.ToLower(search)) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	out := &models.DividendRecords{GroupBy: groupBy}
	if groupBy == "" || groupBy == "none" {
		sorted := make([]*models.DividendRecord, len(records))
		copy(sorted, records)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[j].DateOfDisbursement.Before(sorted[i].DateOfDisbursement)
		})
		out.GroupBy = "none"
		out.Raw = sorted
		return out, nil
	}

	keyOf := func(rec *models.DividendRecord) string {
		switch groupBy {
		case "ticker":
			return rec.Ticker
		case "sector":
			if rec.Sector == "" {
				return "Uncategorized"
			}
			return rec.Sector
		default: // year
			return strconv.Itoa(rec.DateOfDisbursement.Year())
		}
	}

	totals := make(map[string]*models.DividendGroupRow)
	var keys []string
	for _, rec := range records {
		key := keyOf(rec)
		row, ok := totals[key]
		if !ok {
			row = &models.DividendGroupRow{Key: key}
			totals[key] = row
			keys = append(keys, key)
		}
		row.TotalAmount += rec.EffectiveAmount()
		row.Count++
	}

	// Years ascend numerically, everything else ascends case-insensitively.
	sort.Slice(keys, func(i, j int) bool {
		if groupBy == "year" {
			yi, _ := strconv.Atoi(keys[i])
			yj, _ := strconv.Atoi(keys[j])
			return yi < yj
		}
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	for _, key := range keys {
		row := totals[key]
		row.TotalAmount = models.Round2(row.TotalAmount)
		out.Groups = append(out.Groups, *row)
	}
	return out, nil
}
