package server

import (
	"net/http"
	"strconv"

	"github.com/absingh/folio/internal/models"
)

// snapshotRequest is the body for POST /api/snapshots.
type snapshotRequest struct {
	BusinessDate string  `json:"business_date"`
	NetCashFlow  float64 `json:"net_cash_flow"`
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		history, err := s.index.History(r.Context())
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"snapshots": history,
			"count":     len(history),
		})
	case http.MethodPost:
		var req snapshotRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		var businessDate models.Date
		if req.BusinessDate != "" {
			parsed, err := models.ParseDate(req.BusinessDate)
			if err != nil {
				WriteDomainError(w, models.NewValidationError("business_date", "must be YYYY-MM-DD"))
				return
			}
			businessDate = parsed
		}
		snap, err := s.index.TakeSnapshot(r.Context(), businessDate, req.NetCashFlow)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, snap)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleIndexLive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	netCashFlow := 0.0
	if raw := r.URL.Query().Get("net_cash_flow"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteDomainError(w, models.NewValidationError("net_cash_flow", "must be a number"))
			return
		}
		netCashFlow = parsed
	}
	estimate, err := s.index.LiveEstimate(r.Context(), netCashFlow)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, estimate)
}

func (s *Server) handleIndexChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	png, err := s.index.RenderChart(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
