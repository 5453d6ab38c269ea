package server

import (
	"net/http"

	"github.com/absingh/folio/internal/models"
)

func (s *Server) handleDividends(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		report, err := s.dividends.Report(r.Context())
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, report)
	case http.MethodPost:
		var rec models.DividendRecord
		if !DecodeJSON(w, r, &rec) {
			return
		}
		id, err := s.dividends.Add(r.Context(), &rec)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		rec.ID = id
		WriteJSON(w, http.StatusCreated, rec)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleDividendRecords(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	records, err := s.dividends.Records(r.Context(), q.Get("group"), q.Get("search"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
