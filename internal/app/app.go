// Package app wires configuration, logging, storage and services into a
// runnable application.
package app

import (
	"fmt"
	"net/http"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/server"
	"github.com/absingh/folio/internal/services/dividend"
	"github.com/absingh/folio/internal/services/index"
	"github.com/absingh/folio/internal/services/position"
	"github.com/absingh/folio/internal/storage"
)

// App holds the wired application components.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Positions interfaces.PositionService
	Index     interfaces.IndexService
	Dividends interfaces.DividendService

	server *server.Server
}

// New loads configuration, opens storage and wires all services.
func New(configPath string) (*App, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(cfg.Logging.Level)
	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", cfg.Environment).
		Msg("Starting folio")

	store, err := storage.NewManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	positions := position.NewService(store, logger)
	idx := index.NewService(store, positions, logger)
	dividends := dividend.NewService(store, cfg.Engine.ReservedDividendTicker, logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Storage:   store,
		Positions: positions,
		Index:     idx,
		Dividends: dividends,
	}
	app.server = server.NewServer(cfg, logger, store, positions, idx, dividends)
	return app, nil
}

// Handler returns the HTTP handler for the REST API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close releases storage resources.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down folio")
	return a.Storage.Close()
}
