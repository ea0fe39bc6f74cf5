package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/infrastructure/storage"
	"github.com/achupradeep3050/crypto/internal/strategy"
	"github.com/achupradeep3050/crypto/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	mu     sync.Mutex
	price  float64
	orders []domain.OrderRequest
}

func (g *stubGateway) GetCandles(_ context.Context, _, _ string, n int) ([]domain.Candle, error) {
	if g.price == 0 {
		return nil, domain.ErrDataUnavailable
	}
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{Time: int64(60 * (i + 1)), Open: g.price, High: g.price, Low: g.price, Close: g.price}
	}
	return out, nil
}

func (g *stubGateway) GetAccount(context.Context) (*domain.AccountSnapshot, error) {
	return &domain.AccountSnapshot{Balance: 1000, Equity: 1000}, nil
}

func (g *stubGateway) SubmitOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	return &domain.OrderResult{Retcode: 10009, Order: 1}, nil
}

type upConn struct{}

func (upConn) Connected() bool { return true }
func (upConn) Account() domain.AccountSnapshot {
	return domain.AccountSnapshot{Balance: 1000, Equity: 1000}
}

type fixture struct {
	server   *Server
	gateway  *stubGateway
	store    *storage.Store
	settings *config.Settings
	engines  []*usecase.Engine
	envFile  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	envFile := filepath.Join(dir, ".env")
	settings := config.NewSettings("http://127.0.0.1:8001", 5).PersistTo(envFile)
	gw := &stubGateway{price: 100}
	cfg := config.Default()
	log := zap.NewNop()
	executor := usecase.NewTradeExecutor(gw, store, log)

	var engines []*usecase.Engine
	for _, name := range []string{"alpha", "beta"} {
		strat, err := strategy.New("sniper")
		require.NoError(t, err)
		mode, err := cfg.Mode("15m1m")
		require.NoError(t, err)
		engines = append(engines, usecase.NewEngine(usecase.EngineConfig{
			Name:    name,
			Mode:    mode,
			Symbols: []string{"XAUUSD"},
		}, strat, gw, store, executor, upConn{}, settings, nil, log))
	}

	backtests := usecase.NewBacktestService(
		usecase.NewCandleLoader(store, gw, 0, log), strategy.New, settings, usecase.BacktestConfig{}, nil, log)

	srv := NewServer(0, Deps{
		Engines:   engines,
		Settings:  settings,
		Heartbeat: upConn{},
		Backtests: backtests,
		Candles:   store,
		Trades:    store,
		Modes:     cfg,
		Hub:       NewHub(log),
	}, log)

	return &fixture{server: srv, gateway: gw, store: store, settings: settings, engines: engines, envFile: envFile}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.engines[0].Start()

	rec := f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Connected)
	assert.Equal(t, 1000.0, resp.Account.Balance)
	assert.Equal(t, "http://127.0.0.1:8001", resp.GatewayURL)
	assert.Equal(t, 5.0, resp.RiskPercent)
	require.Len(t, resp.Engines, 2)
	assert.Equal(t, "alpha", resp.Engines[0].Name)
	assert.True(t, resp.Engines[0].Active)
	assert.False(t, resp.Engines[1].Active)
	assert.Equal(t, "sniper", resp.Engines[0].Strategy)
}

func TestControl(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/control", controlRequest{Action: "start", Target: "all"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.engines[0].Active())
	assert.True(t, f.engines[1].Active())

	rec = f.do(t, http.MethodPost, "/api/control", controlRequest{Action: "stop", Target: "beta"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.engines[0].Active())
	assert.False(t, f.engines[1].Active())

	rec = f.do(t, http.MethodPost, "/api/control", controlRequest{Action: "stop", Target: "gamma"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/control", controlRequest{Action: "restart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	url, risk := "http://10.0.0.5:8001/", 2.5
	rec := f.do(t, http.MethodPost, "/api/settings", settingsRequest{GatewayURL: &url, Risk: &risk})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://10.0.0.5:8001", f.settings.GatewayURL())
	assert.Equal(t, 2.5, f.settings.RiskPercent())

	bad := 0.0
	rec = f.do(t, http.MethodPost, "/api/settings", settingsRequest{Risk: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2.5, f.settings.RiskPercent())

	badURL := "ftp://nowhere"
	rec = f.do(t, http.MethodPost, "/api/settings", settingsRequest{GatewayURL: &badURL})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "http://10.0.0.5:8001", f.settings.GatewayURL())
}

func TestTestTrade(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/test_trade", testTradeRequest{
		Engine: "beta", Symbol: "XAUUSD", Direction: domain.DirectionLong, OrderType: domain.OrderLimit,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, f.gateway.orders, 1)
	order := f.gateway.orders[0]
	assert.Equal(t, domain.ActionBuy, order.Action)
	assert.Equal(t, domain.OrderLimit, order.OrderType)
	assert.Equal(t, 95.0, order.Price)
	assert.Equal(t, 85.5, order.SL)
	assert.Equal(t, 104.5, order.TP)
	assert.Equal(t, 5.26, order.Volume)

	_, open := f.engines[1].OpenPosition("XAUUSD")
	assert.False(t, open)

	logs, err := f.store.ListTradeLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, usecase.ResultOrderSent, logs[0].Result)
}

func TestTestTradeValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/test_trade", testTradeRequest{Symbol: "XAUUSD", Direction: "up"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.gateway.price = 0
	rec = f.do(t, http.MethodPost, "/api/test_trade", testTradeRequest{Symbol: "XAUUSD", Direction: domain.DirectionShort})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Order failed:"))
	assert.Empty(t, f.gateway.orders)
}

func TestBacktestEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/backtest", backtestRequest{
		Strategy: "sniper", Symbol: "XAUUSD", Mode: "nope", Start: 1, End: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/backtest", backtestRequest{
		Strategy: "martingale", Symbol: "XAUUSD", Mode: "15m1m", Start: 1, End: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/backtest", backtestRequest{
		Strategy: "sniper", Symbol: "xauusd", Mode: "15m1m", Start: 1, End: 2,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created["id"])

	rec = f.do(t, http.MethodGet, "/api/backtest/"+created["id"], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job usecase.BacktestJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, "XAUUSD", job.Request.Symbol)
	assert.Equal(t, usecase.JobPending, job.State)

	rec = f.do(t, http.MethodGet, "/api/backtest/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandlesAndTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.SaveCandles(ctx, "BTCUSD", "1h", []domain.Candle{
		{Time: 3600, Close: 1}, {Time: 7200, Close: 2}, {Time: 10800, Close: 3},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/candles?symbol=BTCUSD&timeframe=1h&start=3600&end=7200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var candles []domain.Candle
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&candles))
	require.Len(t, candles, 2)
	assert.Equal(t, 2.0, candles[1].Close)

	rec = f.do(t, http.MethodGet, "/api/candles?symbol=BTCUSD", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/trades?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRejectedAsAWhole(t *testing.T) {
	f := newFixture(t)

	risk, badURL := 1.0, "not a url"
	rec := f.do(t, http.MethodPost, "/api/settings", settingsRequest{GatewayURL: &badURL, Risk: &risk})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 5.0, f.settings.RiskPercent())
	assert.Equal(t, "http://127.0.0.1:8001", f.settings.GatewayURL())

	url, badRisk := "http://10.0.0.9:8001", 150.0
	rec = f.do(t, http.MethodPost, "/api/settings", settingsRequest{GatewayURL: &url, Risk: &badRisk})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "http://127.0.0.1:8001", f.settings.GatewayURL())
	assert.NoFileExists(t, f.envFile)
}
