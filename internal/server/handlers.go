package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/models"
	"github.com/absingh/folio/internal/query"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "folio",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// parseViewConfig extracts sort/filter/group settings and manual price
// overrides from query parameters. Overrides use the form
// override=SYMBOL:PRICE and may repeat.
func parseViewConfig(r *http.Request) (models.ViewConfig, error) {
	q := r.URL.Query()
	view := models.ViewConfig{
		SymbolSearch:  q.Get("symbol"),
		AccountSearch: q.Get("account"),
		SortKey:       q.Get("sort"),
		GroupBy:       q.Get("group"),
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
		view.SortAsc = true
	case "desc":
		view.SortAsc = false
	default:
		return view, models.NewValidationError("order", "must be asc or desc")
	}
	if pnl := q.Get("pnl"); pnl != "" {
		f := models.PnLFilter(strings.ToLower(pnl))
		if !models.ValidPnLFilter(f) {
			return view, models.NewValidationError("pnl", "must be all, positive or negative")
		}
		view.PnL = f
	}
	for _, raw := range q["override"] {
		sym, priceStr, ok := strings.Cut(raw, ":")
		if !ok {
			return view, models.NewValidationError("override", "expected SYMBOL:PRICE, got "+raw)
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			return view, models.NewValidationError("override", "price must be a positive number in "+raw)
		}
		if view.PriceOverrides == nil {
			view.PriceOverrides = make(map[string]float64)
		}
		view.PriceOverrides[models.NormalizeSymbol(sym)] = price
	}
	return view, nil
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view, err := parseViewConfig(r)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		positions, version, err := s.positions.OpenPositions(r.Context(), view)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if view.GroupBy != "" {
			grouped, err := query.Group(positions, view.GroupBy)
			if err != nil {
				WriteDomainError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, map[string]interface{}{
				"groups":         grouped,
				"ledger_version": version,
			})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"positions":      positions,
			"count":          len(positions),
			"ledger_version": version,
		})
	case http.MethodPost:
		var lot models.TradeLot
		if !DecodeJSON(w, r, &lot) {
			return
		}
		id, err := s.positions.AddLot(r.Context(), &lot)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		lot.ID = id
		WriteJSON(w, http.StatusCreated, lot)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	view, err := parseViewConfig(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	summary, err := s.positions.Summary(r.Context(), view.PriceOverrides)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// sellRequest is the body for POST /api/positions/{symbol}/sell.
type sellRequest struct {
	Account   string  `json:"account"`
	SellDate  string  `json:"sell_date"`
	SellPrice float64 `json:"sell_price"`
}

func (s *Server) handlePositionAction(w http.ResponseWriter, r *http.Request) {
	symbol := PathParam(r, "/api/positions/", "/sell")
	if symbol == "" || !strings.HasSuffix(r.URL.Path, "/sell") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req sellRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	sellDate, err := models.ParseDate(req.SellDate)
	if err != nil {
		WriteDomainError(w, models.NewValidationError("sell_date", "must be YYYY-MM-DD"))
		return
	}
	result, err := s.positions.Sell(r.Context(), symbol, req.Account, sellDate, req.SellPrice)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// simulateRequest is the body for POST /api/positions/simulate.
type simulateRequest struct {
	Symbol   string  `json:"symbol"`
	Account  string  `json:"account"`
	NewQty   int64   `json:"new_qty"`
	NewPrice float64 `json:"new_price"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req simulateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	result, err := s.positions.Simulate(r.Context(), req.Symbol, req.Account, req.NewQty, req.NewPrice)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleRealised(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	realised, err := s.positions.Realised(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"realised": realised,
		"count":    len(realised),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	lots, err := s.storage.Ledger().ListLots(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trades": lots,
		"count":  len(lots),
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var quote models.PriceQuote
	if !DecodeJSON(w, r, &quote) {
		return
	}
	if err := s.storage.Prices().SetPrice(r.Context(), quote.Symbol, quote.Price); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
