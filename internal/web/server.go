package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/usecase"
	"go.uber.org/zap"
)

// ModeResolver looks up a timeframe mode by name.
type ModeResolver interface {
	Mode(name string) (domain.Mode, error)
}

// Deps are the runtime components the control surface operates on.
type Deps struct {
	Engines   []*usecase.Engine
	Settings  *config.Settings
	Heartbeat usecase.Connectivity
	Backtests *usecase.BacktestService
	Candles   domain.CandleRepository
	Trades    domain.TradeRepository
	Modes     ModeResolver
	Hub       *Hub
}

type Server struct {
	router *http.ServeMux
	server *http.Server
	deps   Deps
	logger *zap.Logger
}

func NewServer(port int, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		router: http.NewServeMux(),
		deps:   deps,
		logger: logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Engines
	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("POST /api/control", s.handleControl)
	s.router.HandleFunc("POST /api/test_trade", s.handleTestTrade)

	// Settings
	s.router.HandleFunc("POST /api/settings", s.handleSettings)

	// Backtests
	s.router.HandleFunc("POST /api/backtest", s.handleSubmitBacktest)
	s.router.HandleFunc("GET /api/backtest/{id}", s.handleGetBacktest)

	// History
	s.router.HandleFunc("GET /api/candles", s.handleGetCandles)
	s.router.HandleFunc("GET /api/trades", s.handleListTrades)

	if s.deps.Hub != nil {
		s.router.HandleFunc("GET /ws/events", s.deps.Hub.ServeWS)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) engine(name string) *usecase.Engine {
	for _, e := range s.deps.Engines {
		if e.Name() == name {
			return e
		}
	}
	return nil
}
