package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absingh/folio/internal/common"
	"github.com/absingh/folio/internal/services/dividend"
	"github.com/absingh/folio/internal/services/index"
	"github.com/absingh/folio/internal/services/position"
	"github.com/absingh/folio/internal/storage"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := common.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "folio.db")
	logger := common.NewSilentLogger()

	store, err := storage.NewManager(logger, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	positions := position.NewService(store, logger)
	idx := index.NewService(store, positions, logger)
	dividends := dividend.NewService(store, cfg.Engine.ReservedDividendTicker, logger)

	return NewServer(cfg, logger, store, positions, idx, dividends).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func addLot(t *testing.T, handler http.Handler, symbol, account string, qty int64, price float64) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/positions", map[string]interface{}{
		"symbol": symbol, "account": account, "qty": qty,
		"buy_price": price, "buy_date": "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func setPrice(t *testing.T, handler http.Handler, symbol string, price float64) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/prices", map[string]interface{}{
		"symbol": symbol, "price": price,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndVersion(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = doJSON(t, handler, http.MethodGet, "/api/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPositionsLifecycle(t *testing.T) {
	handler := newTestServer(t)

	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	addLot(t, handler, "INFY", "Zerodha", 5, 110)
	setPrice(t, handler, "INFY", 120)

	rec := doJSON(t, handler, http.MethodGet, "/api/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Positions []struct {
			Symbol      string   `json:"symbol"`
			TotalQty    int64    `json:"totalQty"`
			MarketValue *float64 `json:"marketValue"`
			PnL         *float64 `json:"pnl"`
		} `json:"positions"`
		Count         int   `json:"count"`
		LedgerVersion int64 `json:"ledger_version"`
	}
	decode(t, rec, &listing)
	require.Equal(t, 1, listing.Count)
	assert.Positive(t, listing.LedgerVersion)

	p := listing.Positions[0]
	assert.Equal(t, "INFY", p.Symbol)
	assert.Equal(t, int64(15), p.TotalQty)
	require.NotNil(t, p.MarketValue)
	assert.Equal(t, float64(1800), *p.MarketValue)
	require.NotNil(t, p.PnL)
	assert.Equal(t, float64(250), *p.PnL)
}

func TestPositionsUnpricedMarshalsNull(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "OBSCURE", "", 4, 50)

	rec := doJSON(t, handler, http.MethodGet, "/api/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Positions []struct {
			PriceAvailable bool     `json:"price_available"`
			MarketValue    *float64 `json:"marketValue"`
			PctPnL         *float64 `json:"pct_pnl"`
		} `json:"positions"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Positions, 1)
	assert.False(t, listing.Positions[0].PriceAvailable)
	assert.Nil(t, listing.Positions[0].MarketValue)
	assert.Nil(t, listing.Positions[0].PctPnL)
}

func TestPositionsViewParams(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	addLot(t, handler, "TCS", "Groww", 5, 200)
	setPrice(t, handler, "INFY", 120)
	setPrice(t, handler, "TCS", 190)

	rec := doJSON(t, handler, http.MethodGet, "/api/positions?pnl=negative", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Positions []struct {
			Symbol string `json:"symbol"`
		} `json:"positions"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Positions, 1)
	assert.Equal(t, "TCS", listing.Positions[0].Symbol)

	rec = doJSON(t, handler, http.MethodGet, "/api/positions?sort=pnl&order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listing)
	require.Len(t, listing.Positions, 2)
	assert.Equal(t, "INFY", listing.Positions[0].Symbol)

	rec = doJSON(t, handler, http.MethodGet, "/api/positions?sort=sharpe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/positions?override=INFY:60", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overridden struct {
		Positions []struct {
			Symbol string   `json:"symbol"`
			PnL    *float64 `json:"pnl"`
		} `json:"positions"`
	}
	decode(t, rec, &overridden)
	for _, p := range overridden.Positions {
		if p.Symbol == "INFY" {
			require.NotNil(t, p.PnL)
			assert.Equal(t, float64(-400), *p.PnL)
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/positions?override=INFY", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionsGrouped(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	addLot(t, handler, "TCS", "", 5, 200)

	rec := doJSON(t, handler, http.MethodGet, "/api/positions?group=account", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var grouped struct {
		Groups struct {
			Keys []string `json:"Keys"`
		} `json:"groups"`
	}
	decode(t, rec, &grouped)
	assert.Contains(t, grouped.Groups.Keys, "Zerodha")
	assert.Contains(t, grouped.Groups.Keys, "Uncategorized")
}

func TestSellEndpoint(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	addLot(t, handler, "INFY", "Zerodha", 5, 110)

	rec := doJSON(t, handler, http.MethodPost, "/api/positions/INFY/sell", map[string]interface{}{
		"account": "Zerodha", "sell_date": "2024-04-09", "sell_price": 120,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Realised struct {
			Qty      int64   `json:"qty"`
			TotalPnL float64 `json:"total_pnl"`
		} `json:"realised"`
		PendingRefresh bool `json:"pending_refresh"`
	}
	decode(t, rec, &result)
	assert.Equal(t, int64(15), result.Realised.Qty)
	assert.Equal(t, float64(250), result.Realised.TotalPnL)
	assert.False(t, result.PendingRefresh)

	// Selling again is a conflict, not a 500.
	rec = doJSON(t, handler, http.MethodPost, "/api/positions/INFY/sell", map[string]interface{}{
		"account": "Zerodha", "sell_date": "2024-04-10", "sell_price": 125,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/realised", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Count int `json:"count"`
	}
	decode(t, rec, &history)
	assert.Equal(t, 1, history.Count)

	// The full trade log keeps the sold lots.
	rec = doJSON(t, handler, http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades struct {
		Count int `json:"count"`
	}
	decode(t, rec, &trades)
	assert.Equal(t, 2, trades.Count)
}

func TestSellValidationStatus(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)

	rec := doJSON(t, handler, http.MethodPost, "/api/positions/INFY/sell", map[string]interface{}{
		"account": "Zerodha", "sell_date": "not-a-date", "sell_price": 120,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/positions/TCS/sell", map[string]interface{}{
		"account": "Zerodha", "sell_date": "2024-04-09", "sell_price": 120,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSimulateEndpoint(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "", 10, 100)
	addLot(t, handler, "INFY", "", 5, 110)

	rec := doJSON(t, handler, http.MethodPost, "/api/positions/simulate", map[string]interface{}{
		"symbol": "INFY", "new_qty": 10, "new_price": 90,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		SimulatedQty      int64   `json:"simulated_qty"`
		SimulatedAvgPrice float64 `json:"simulated_avg_price"`
	}
	decode(t, rec, &result)
	assert.Equal(t, int64(25), result.SimulatedQty)
	assert.Equal(t, float64(98), result.SimulatedAvgPrice)
}

func TestSummaryEndpoint(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	setPrice(t, handler, "INFY", 120)

	rec := doJSON(t, handler, http.MethodGet, "/api/positions/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		TotalMarketValue float64            `json:"total_market_value"`
		OverallPnL       float64            `json:"overall_pnl"`
		PnLByAccount     map[string]float64 `json:"pnl_by_account"`
	}
	decode(t, rec, &summary)
	assert.Equal(t, float64(1200), summary.TotalMarketValue)
	assert.Equal(t, float64(200), summary.OverallPnL)
	assert.Equal(t, float64(200), summary.PnLByAccount["Zerodha"])
}

func TestSnapshotAndIndexEndpoints(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	setPrice(t, handler, "INFY", 100)

	rec := doJSON(t, handler, http.MethodPost, "/api/snapshots", map[string]interface{}{
		"business_date": "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap struct {
		IndexValue float64 `json:"portfolio_index_value"`
	}
	decode(t, rec, &snap)
	assert.Equal(t, float64(100), snap.IndexValue)

	// Same business date again conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/snapshots", map[string]interface{}{
		"business_date": "2024-01-10",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Price moves 5% with no cash flow: live estimate follows.
	setPrice(t, handler, "INFY", 105)
	rec = doJSON(t, handler, http.MethodGet, "/api/index/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var live struct {
		IndexValue *float64 `json:"live_portfolio_index_value"`
		BaseDate   string   `json:"base_date"`
	}
	decode(t, rec, &live)
	require.NotNil(t, live.IndexValue)
	assert.Equal(t, float64(105), *live.IndexValue)
	assert.Equal(t, "2024-01-10", live.BaseDate)

	rec = doJSON(t, handler, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Count int `json:"count"`
	}
	decode(t, rec, &history)
	assert.Equal(t, 1, history.Count)
}

func TestSnapshotBlockedByUnpricedSymbol(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "OBSCURE", "", 4, 50)

	rec := doJSON(t, handler, http.MethodPost, "/api/snapshots", map[string]interface{}{
		"business_date": "2024-01-10",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIndexChartEndpoint(t *testing.T) {
	handler := newTestServer(t)
	addLot(t, handler, "INFY", "Zerodha", 10, 100)
	setPrice(t, handler, "INFY", 100)

	for i, price := range []float64{100, 103} {
		setPrice(t, handler, "INFY", price)
		rec := doJSON(t, handler, http.MethodPost, "/api/snapshots", map[string]interface{}{
			"business_date": fmt.Sprintf("2024-01-1%d", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/index/chart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestDividendEndpoints(t *testing.T) {
	handler := newTestServer(t)

	records := []map[string]interface{}{
		{"ticker": "INFY", "sector": "IT", "date_of_disbursement": "2024-06-01", "rs_per_share": 10, "qty": 15},
		{"ticker": "HISTDIVIDENDS", "date_of_disbursement": "2023-01-01", "amount": 5000},
	}
	for _, rec := range records {
		resp := doJSON(t, handler, http.MethodPost, "/api/dividends", rec)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/dividends", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		ByTicker []struct {
			Key string `json:"key"`
		} `json:"by_ticker"`
		GrandTotal float64 `json:"total_dividend_earned"`
	}
	decode(t, rec, &report)
	assert.Equal(t, float64(5150), report.GrandTotal)
	require.Len(t, report.ByTicker, 1)
	assert.Equal(t, "INFY", report.ByTicker[0].Key)

	rec = doJSON(t, handler, http.MethodGet, "/api/dividends/records?group=year", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped struct {
		GroupBy string `json:"group_by"`
		Groups  []struct {
			Key         string  `json:"key"`
			TotalAmount float64 `json:"total_amount"`
		} `json:"groups"`
	}
	decode(t, rec, &grouped)
	require.Len(t, grouped.Groups, 2)
	assert.Equal(t, "2023", grouped.Groups[0].Key)

	rec = doJSON(t, handler, http.MethodGet, "/api/dividends/records?group=quarter", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodDelete, "/api/positions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/realised", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
