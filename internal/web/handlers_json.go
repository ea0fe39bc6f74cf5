package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/usecase"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

type statusResponse struct {
	Connected   bool                   `json:"connected"`
	Account     domain.AccountSnapshot `json:"account"`
	GatewayURL  string                 `json:"gateway_url"`
	RiskPercent float64                `json:"risk_percent"`
	Engines     []usecase.EngineStatus `json:"engines"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Engines: make([]usecase.EngineStatus, 0, len(s.deps.Engines))}
	if s.deps.Heartbeat != nil {
		resp.Connected = s.deps.Heartbeat.Connected()
		resp.Account = s.deps.Heartbeat.Account()
	}
	if s.deps.Settings != nil {
		resp.GatewayURL = s.deps.Settings.GatewayURL()
		resp.RiskPercent = s.deps.Settings.RiskPercent()
	}
	for _, e := range s.deps.Engines {
		resp.Engines = append(resp.Engines, e.Status())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type controlRequest struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Action != "start" && req.Action != "stop" {
		http.Error(w, "action must be start or stop", http.StatusBadRequest)
		return
	}

	var targets []*usecase.Engine
	if req.Target == "" || req.Target == "all" {
		targets = s.deps.Engines
	} else if e := s.engine(req.Target); e != nil {
		targets = []*usecase.Engine{e}
	} else {
		http.Error(w, "unknown engine "+req.Target, http.StatusNotFound)
		return
	}

	names := make([]string, 0, len(targets))
	for _, e := range targets {
		if req.Action == "start" {
			e.Start()
		} else {
			e.Stop()
		}
		names = append(names, e.Name())
	}
	s.logger.Info("Engine control", zap.String("action", req.Action), zap.Strings("engines", names))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": req.Action, "engines": names})
}

type settingsRequest struct {
	GatewayURL *string  `json:"gateway_url"`
	Risk       *float64 `json:"risk"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// validate everything first so a bad field leaves settings untouched
	if req.Risk != nil {
		if err := config.ValidateRiskPercent(*req.Risk); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.GatewayURL != nil {
		if _, err := config.ValidateGatewayURL(*req.GatewayURL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if req.GatewayURL != nil {
		if err := s.deps.Settings.SetGatewayURL(*req.GatewayURL); err != nil {
			s.logger.Error("Failed to persist gateway url", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if req.Risk != nil {
		s.deps.Settings.SetRiskPercent(*req.Risk)
	}
	s.logger.Info("Settings updated",
		zap.String("gateway_url", s.deps.Settings.GatewayURL()),
		zap.Float64("risk_percent", s.deps.Settings.RiskPercent()))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"gateway_url":  s.deps.Settings.GatewayURL(),
		"risk_percent": s.deps.Settings.RiskPercent(),
	})
}

type testTradeRequest struct {
	Engine    string           `json:"engine"`
	Symbol    string           `json:"symbol"`
	Direction domain.Direction `json:"direction"`
	OrderType domain.OrderType `json:"order_type"`
}

func (s *Server) handleTestTrade(w http.ResponseWriter, r *http.Request) {
	var req testTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if req.Direction != domain.DirectionLong && req.Direction != domain.DirectionShort {
		http.Error(w, "direction must be long or short", http.StatusBadRequest)
		return
	}
	if req.OrderType == "" {
		req.OrderType = domain.OrderMarket
	}
	if req.OrderType != domain.OrderMarket && req.OrderType != domain.OrderLimit {
		http.Error(w, "order_type must be market or limit", http.StatusBadRequest)
		return
	}

	var e *usecase.Engine
	if req.Engine != "" {
		e = s.engine(req.Engine)
	} else if len(s.deps.Engines) > 0 {
		e = s.deps.Engines[0]
	}
	if e == nil {
		http.Error(w, "no engine available", http.StatusNotFound)
		return
	}

	order, err := e.TestTrade(r.Context(), req.Symbol, req.Direction, req.OrderType)
	if err != nil {
		s.logger.Error("Test trade failed", zap.String("symbol", req.Symbol), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrDataUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, "Order failed: "+err.Error(), status)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "sent", "order": order})
}

type backtestRequest struct {
	Strategy     string  `json:"strategy"`
	Symbol       string  `json:"symbol"`
	Mode         string  `json:"mode"`
	Start        int64   `json:"start"`
	End          int64   `json:"end"`
	StartBalance float64 `json:"start_balance"`
}

func (s *Server) handleSubmitBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := s.deps.Modes.Mode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.deps.Backtests.Submit(usecase.BacktestRequest{
		Strategy:     req.Strategy,
		Symbol:       strings.ToUpper(req.Symbol),
		Mode:         mode,
		Start:        req.Start,
		End:          req.End,
		StartBalance: req.StartBalance,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	job, ok := s.deps.Backtests.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "backtest not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetCandles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol, timeframe := q.Get("symbol"), q.Get("timeframe")
	if symbol == "" || timeframe == "" {
		http.Error(w, "symbol and timeframe are required", http.StatusBadRequest)
		return
	}
	start, err := parseInt(q.Get("start"), 0)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := parseInt(q.Get("end"), 1<<62)
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	candles, err := s.deps.Candles.GetRange(r.Context(), symbol, timeframe, start, end)
	if err != nil {
		s.logger.Error("Failed to load candles", zap.Error(err))
		http.Error(w, "Failed to load candles", http.StatusInternalServerError)
		return
	}
	if candles == nil {
		candles = []domain.Candle{}
	}
	s.writeJSON(w, http.StatusOK, candles)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query().Get("limit"), 50)
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	logs, err := s.deps.Trades.ListTradeLogs(r.Context(), int(limit))
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*domain.TradeLog{}
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func parseInt(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
