package server

import "net/http"

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/positions/summary", s.handleSummary)
	mux.HandleFunc("/api/positions/simulate", s.handleSimulate)
	mux.HandleFunc("/api/positions/", s.handlePositionAction)
	mux.HandleFunc("/api/realised", s.handleRealised)
	mux.HandleFunc("/api/trades", s.handleTrades)

	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/index/live", s.handleIndexLive)
	mux.HandleFunc("/api/index/chart", s.handleIndexChart)

	mux.HandleFunc("/api/dividends", s.handleDividends)
	mux.HandleFunc("/api/dividends/records", s.handleDividendRecords)

	mux.HandleFunc("/api/prices", s.handlePrices)
}
