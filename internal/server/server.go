package server

import (
	"net/http"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
)

// Server hosts the REST API over the portfolio services.
type Server struct {
	positions interfaces.PositionService
	index     interfaces.IndexService
	dividends interfaces.DividendService
	storage   interfaces.StorageManager
	logger    *common.Logger
	config    *common.Config
}

// NewServer creates a Server wired to the given services.
func NewServer(cfg *common.Config, logger *common.Logger, storage interfaces.StorageManager,
	positions interfaces.PositionService, index interfaces.IndexService, dividends interfaces.DividendService) *Server {
	return &Server{
		positions: positions,
		index:     index,
		dividends: dividends,
		storage:   storage,
		logger:    logger,
		config:    cfg,
	}
}

// Handler returns the root HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = withRequestLogging(s.logger, h)
	h = withCORS(h)
	h = withCorrelationID(h)
	h = withRecovery(s.logger, h)
	return h
}
