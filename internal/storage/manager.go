// Package storage wires the concrete storage backends behind the
// StorageManager contract.
package storage

import (
	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/interfaces"
	"github.com/absingh/folio/internal/storage/sqlite"
)

// Manager implements interfaces.StorageManager over a single SQLite store.
type Manager struct {
	store *sqlite.Store
}

// NewManager opens the storage backends described by the config.
func NewManager(logger *common.Logger, cfg *common.Config) (*Manager, error) {
	store, err := sqlite.NewStore(cfg.Storage.Path, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store}, nil
}

// Ledger returns the trade-lot ledger store.
func (m *Manager) Ledger() interfaces.LedgerStore { return m.store.Ledger() }

// Snapshots returns the portfolio snapshot store.
func (m *Manager) Snapshots() interfaces.SnapshotStore { return m.store.Snapshots() }

// Dividends returns the dividend record store.
func (m *Manager) Dividends() interfaces.DividendStore { return m.store.Dividends() }

// Prices returns the price source store.
func (m *Manager) Prices() interfaces.PriceStore { return m.store.Prices() }

// Close releases the underlying database handle.
func (m *Manager) Close() error { return m.store.Close() }
