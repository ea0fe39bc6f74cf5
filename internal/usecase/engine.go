package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

const candleTimeout = 10 * time.Second

const (
	StatusIdle             = "Idle"
	StatusStopped          = "Stopped"
	StatusScanning         = "Scanning"
	StatusConnectionLost   = "Connection Lost"
	StatusConnectionError  = "Connection Error"
	StatusInsufficientData = "Insufficient Data"
	StatusError            = "Error"
	StatusClosedTrade      = "Closed Trade"
)

// RiskSource exposes the current risk percent. config.Settings satisfies it.
type RiskSource interface {
	RiskPercent() float64
}

type EngineConfig struct {
	Name        string
	Mode        domain.Mode
	Symbols     []string
	CandleCount int
	SymbolDelay time.Duration
	Specs       map[string]domain.SymbolSpec

	// FetchTimeout bounds one candle request; zero means candleTimeout.
	FetchTimeout time.Duration
}

func (c EngineConfig) spec(symbol string) domain.SymbolSpec {
	if s, ok := c.Specs[symbol]; ok {
		return s
	}
	return domain.SymbolSpec{PricePrecision: 2}
}

// EngineStatus is a point-in-time copy of an engine's state.
type EngineStatus struct {
	ID        string                        `json:"id"`
	Name      string                        `json:"name"`
	Strategy  string                        `json:"strategy"`
	Active    bool                          `json:"active"`
	Mode      domain.Mode                   `json:"mode"`
	Status    map[string]string             `json:"status"`
	Positions map[string]*domain.Position   `json:"positions"`
	Trades    []domain.Trade                `json:"trades"`
	Market    map[string]map[string]float64 `json:"market_data"`
	Logs      []string                      `json:"logs"`
}

// Engine drives the per-symbol position lifecycle for one strategy.
// Each symbol is IDLE (no entry in positions) or OPEN.
type Engine struct {
	id       string
	cfg      EngineConfig
	strategy domain.Strategy
	gateway  domain.Gateway
	candles  domain.CandleRepository
	executor *TradeExecutor
	conn     Connectivity
	risk     RiskSource
	sink     domain.EventSink
	logger   *zap.Logger
	logs     logRing
	now      func() time.Time

	active atomic.Bool

	mu        sync.Mutex
	status    map[string]string
	positions map[string]*domain.Position
	trades    []domain.Trade
	market    map[string]map[string]float64
}

// NewEngine wires an engine. candles may be nil when no cache is configured.
func NewEngine(
	cfg EngineConfig,
	strategy domain.Strategy,
	gateway domain.Gateway,
	candles domain.CandleRepository,
	executor *TradeExecutor,
	conn Connectivity,
	risk RiskSource,
	sink domain.EventSink,
	logger *zap.Logger,
) *Engine {
	if sink == nil {
		sink = domain.NopSink{}
	}
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = 200
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = candleTimeout
	}
	// the closed bar must sit past the slowest indicator's lookback
	if need := strategy.Warmup() + 2; cfg.CandleCount < need {
		cfg.CandleCount = need
	}
	e := &Engine{
		id:        uuid.NewString(),
		cfg:       cfg,
		strategy:  strategy,
		gateway:   gateway,
		candles:   candles,
		executor:  executor,
		conn:      conn,
		risk:      risk,
		sink:      sink,
		logger:    logger.With(zap.String("engine", cfg.Name)),
		now:       time.Now,
		status:    make(map[string]string),
		positions: make(map[string]*domain.Position),
		market:    make(map[string]map[string]float64),
	}
	for _, s := range cfg.Symbols {
		e.status[s] = StatusIdle
	}
	return e
}

func (e *Engine) Name() string { return e.cfg.Name }

func (e *Engine) Active() bool { return e.active.Load() }

func (e *Engine) Start() {
	if e.active.Swap(true) {
		return
	}
	e.mu.Lock()
	for _, s := range e.cfg.Symbols {
		e.status[s] = "Scanning..."
	}
	e.mu.Unlock()
	e.log("Bot Started (%s)", e.cfg.Mode.Name)
	e.emit(domain.EventEngineStarted, "", fmt.Sprintf("Bot started - mode %s", e.cfg.Mode.Name), nil)
}

// Stop flips the active flag; a tick already in flight finishes its current
// symbol and then returns.
func (e *Engine) Stop() {
	if !e.active.Swap(false) {
		return
	}
	e.mu.Lock()
	for _, s := range e.cfg.Symbols {
		e.status[s] = StatusStopped
	}
	e.mu.Unlock()
	e.log("Bot stopped")
	e.emit(domain.EventEngineStopped, "", "Bot stopped", nil)
}

// Run ticks every interval until ctx is cancelled. Inactive engines idle.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Engine loop started", zap.Strings("symbols", e.cfg.Symbols))
	for {
		if e.Active() {
			e.Tick(ctx)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			e.logger.Info("Engine loop cancelled")
			return
		}
	}
}

// Tick processes every symbol once, sequentially, pausing SymbolDelay
// between symbols.
func (e *Engine) Tick(ctx context.Context) {
	for i, symbol := range e.cfg.Symbols {
		if !e.Active() || ctx.Err() != nil {
			return
		}
		e.processSymbol(ctx, symbol)

		if i < len(e.cfg.Symbols)-1 && e.cfg.SymbolDelay > 0 {
			select {
			case <-time.After(e.cfg.SymbolDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) processSymbol(ctx context.Context, symbol string) {
	if !e.conn.Connected() {
		e.setStatus(symbol, StatusConnectionLost)
		return
	}
	e.setStatus(symbol, fmt.Sprintf("Scanning (%s)...", e.cfg.Mode.Name))

	current, err := e.fetch(ctx, symbol, e.cfg.Mode.Current)
	var higher []domain.Candle
	if err == nil && e.cfg.Mode.HasHigher() {
		higher, err = e.fetch(ctx, symbol, *e.cfg.Mode.Higher)
	}
	if err != nil {
		e.setStatus(symbol, StatusConnectionError)
		e.log("[WARN] %s: fetch failed: %v", symbol, err)
		e.emit(domain.EventDataUnavailable, symbol, err.Error(), nil)
		return
	}

	var frame *domain.Frame
	err = guard("compute indicators", func() error {
		var cerr error
		frame, cerr = e.strategy.ComputeIndicators(current, higher)
		return cerr
	})
	if err == nil && frame.Len() == 0 {
		err = domain.ErrInsufficientHistory
	}
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			e.setStatus(symbol, StatusInsufficientData)
			e.log("[WARN] %s: Insufficient Data (Candles: %d/%d)", symbol, len(current), len(higher))
			e.emit(domain.EventInsufficientHistory, symbol, "insufficient data", map[string]interface{}{
				"current": len(current), "higher": len(higher),
			})
			return
		}
		e.strategyFailed(symbol, err)
		return
	}

	e.mu.Lock()
	e.market[symbol] = frame.Row(frame.Last())
	pos := e.positions[symbol]
	e.mu.Unlock()

	closePrice := frame.Candles[frame.Last()].Close

	if pos != nil {
		var exit bool
		if err := guard("exit signal", func() error {
			exit = e.strategy.ExitSignal(frame, pos.Direction)
			return nil
		}); err != nil {
			e.strategyFailed(symbol, err)
			return
		}
		if !exit {
			e.setStatus(symbol, fmt.Sprintf("In Trade (%s)", pos.Direction))
			return
		}
		e.closePosition(ctx, symbol, pos, closePrice)
		return
	}

	var sig domain.Signal
	if err := guard("signal", func() error {
		sig = e.strategy.Signal(frame)
		return nil
	}); err != nil {
		e.strategyFailed(symbol, err)
		return
	}
	e.log("[SCAN] %s Price=%v Signal=%s", symbol, closePrice, sig)

	if sig == domain.SignalNone {
		e.setStatus(symbol, StatusScanning)
		return
	}
	e.openPosition(ctx, symbol, sig, frame, closePrice)
}

func (e *Engine) fetch(ctx context.Context, symbol, timeframe string) ([]domain.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	candles, err := e.gateway.GetCandles(ctx, symbol, timeframe, e.cfg.CandleCount)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrDataUnavailable, symbol, timeframe)
	}

	if e.candles != nil {
		if _, err := e.candles.SaveCandles(ctx, symbol, timeframe, candles); err != nil {
			e.log("DB Cache Warning: %v", err)
		}
	}
	return candles, nil
}

func (e *Engine) openPosition(ctx context.Context, symbol string, sig domain.Signal, frame *domain.Frame, closePrice float64) {
	e.log("[SIGNAL] Signal found for %s: %s", symbol, sig)
	e.emit(domain.EventSignal, symbol, fmt.Sprintf("Signal found for %s: %s", symbol, sig), map[string]interface{}{"signal": string(sig)})

	var params domain.EntryParams
	if err := guard("entry params", func() error {
		var perr error
		params, perr = e.strategy.EntryParams(sig, frame)
		return perr
	}); err != nil {
		e.log("[ERROR] %s: entry aborted: %v", symbol, err)
		e.emit(domain.EventStrategyError, symbol, err.Error(), nil)
		e.setStatus(symbol, StatusScanning)
		return
	}
	if params.Entry <= 0 {
		params.Entry = closePrice
	}

	spec := e.cfg.spec(symbol)
	balance := e.conn.Account().Balance
	size := positionSize(e.strategy, balance, e.risk.RiskPercent(), params.Entry, params.Stop, spec.Volume)
	if size <= 0 {
		e.log("calculated qty is 0. Aborting trade for %s", symbol)
		e.setStatus(symbol, StatusScanning)
		return
	}

	dir := sig.Direction()
	req := BuildOrder(symbol, dir.Action(), size, params.Entry, params.Stop, params.Target, domain.OrderMarket, spec.PricePrecision)
	e.submit(ctx, symbol, req)

	// the position is tracked even when the order failed
	pos := &domain.Position{
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: params.Entry,
		Size:       size,
		Stop:       params.Stop,
		Target:     params.Target,
		OpenTime:   e.now().Unix(),
	}
	e.mu.Lock()
	e.positions[symbol] = pos
	e.status[symbol] = fmt.Sprintf("Entered: %s", dir)
	e.mu.Unlock()

	e.emit(domain.EventPositionOpened, symbol, fmt.Sprintf("Opened %s %s @ %v qty %v", dir, symbol, params.Entry, size), map[string]interface{}{
		"direction": string(dir), "entry": params.Entry, "size": size, "stop": params.Stop, "target": params.Target,
	})
}

func (e *Engine) closePosition(ctx context.Context, symbol string, pos *domain.Position, closePrice float64) {
	e.log("[EXIT] Exit Signal for %s (%s)", symbol, pos.Direction)

	spec := e.cfg.spec(symbol)
	req := BuildOrder(symbol, pos.Direction.Opposite().Action(), pos.Size, closePrice, 0, 0, domain.OrderMarket, spec.PricePrecision)
	e.submit(ctx, symbol, req)

	trade := pos.Close(e.now().Unix(), closePrice, pos.PnL(closePrice), domain.ExitSignal)

	e.mu.Lock()
	delete(e.positions, symbol)
	e.trades = append(e.trades, trade)
	e.status[symbol] = StatusClosedTrade
	e.mu.Unlock()

	e.log("[TRADE] Position Closed %s", symbol)
	e.emit(domain.EventPositionClosed, symbol, fmt.Sprintf("Closed %s %s @ %v pnl %.2f", pos.Direction, symbol, closePrice, trade.PnL), map[string]interface{}{
		"direction": string(pos.Direction), "exit": closePrice, "pnl": trade.PnL, "reason": string(trade.Reason),
	})
}

func (e *Engine) submit(ctx context.Context, symbol string, req domain.OrderRequest) {
	e.log("Sending Order %s (%s): Price=%v, SL=%v, TP=%v", symbol, req.OrderType, req.Price, req.SL, req.TP)
	if _, err := e.executor.Execute(ctx, e.cfg.Name, req); err != nil {
		msg := fmt.Sprintf("Order failed %s: %v", symbol, err)
		e.log("%s", msg)
		e.emit(domain.EventOrderFailed, symbol, msg, nil)
		return
	}
	msg := fmt.Sprintf("Order Sent! %s %s @ %v Qty: %v", symbol, req.Action, req.Price, req.Volume)
	e.log("%s", msg)
	e.emit(domain.EventOrderSubmitted, symbol, msg, map[string]interface{}{
		"action": string(req.Action), "price": req.Price, "volume": req.Volume,
	})
}

// TestTrade sends a validation order without touching the lifecycle state.
// Limit orders are placed 5% away from the market so they rest unfilled.
func (e *Engine) TestTrade(ctx context.Context, symbol string, dir domain.Direction, orderType domain.OrderType) (domain.OrderRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	candles, err := e.gateway.GetCandles(ctx, symbol, "1m", e.cfg.CandleCount)
	if err != nil {
		return domain.OrderRequest{}, fmt.Errorf("could not fetch price for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return domain.OrderRequest{}, fmt.Errorf("could not fetch price for %s: %w", symbol, domain.ErrDataUnavailable)
	}
	price := candles[len(candles)-1].Close

	entry := price
	if orderType == domain.OrderLimit {
		if dir == domain.DirectionLong {
			entry = price * 0.95
		} else {
			entry = price * 1.05
		}
	}
	sl, tp := entry*0.90, entry*1.10
	if dir == domain.DirectionShort {
		sl, tp = entry*1.10, entry*0.90
	}

	spec := e.cfg.spec(symbol)
	size := CalculateSize(e.conn.Account().Balance, e.risk.RiskPercent(), entry, sl, spec.Volume)
	if size <= 0 {
		return domain.OrderRequest{}, fmt.Errorf("%w: calculated qty is 0 for %s", domain.ErrOrderRejected, symbol)
	}

	req := BuildOrder(symbol, dir.Action(), size, entry, sl, tp, orderType, spec.PricePrecision)
	e.log("[TEST] Sending %s test order for %s", orderType, symbol)
	if _, err := e.executor.Execute(ctx, e.cfg.Name, req); err != nil {
		e.emit(domain.EventOrderFailed, symbol, err.Error(), nil)
		return req, err
	}
	e.emit(domain.EventOrderSubmitted, symbol, fmt.Sprintf("Test order sent %s %s @ %v", symbol, req.Action, req.Price), nil)
	return req, nil
}

// Status returns a deep copy safe to serialize while the engine runs.
func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	src := EngineStatus{
		ID:        e.id,
		Name:      e.cfg.Name,
		Strategy:  e.strategy.Name(),
		Active:    e.Active(),
		Mode:      e.cfg.Mode,
		Status:    e.status,
		Positions: e.positions,
		Trades:    e.trades,
		Market:    e.market,
	}
	var out EngineStatus
	err := copier.CopyWithOption(&out, &src, copier.Option{DeepCopy: true})
	e.mu.Unlock()
	if err != nil {
		e.logger.Warn("Status copy failed", zap.Error(err))
	}
	out.Logs = e.logs.Lines()
	return out
}

// OpenPosition reports the tracked position for symbol, if any.
func (e *Engine) OpenPosition(symbol string) (domain.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

func (e *Engine) strategyFailed(symbol string, err error) {
	e.setStatus(symbol, StatusError)
	e.log("[ERROR] analyzing %s: %v", symbol, err)
	e.emit(domain.EventStrategyError, symbol, err.Error(), nil)
}

func (e *Engine) setStatus(symbol, status string) {
	e.mu.Lock()
	e.status[symbol] = status
	e.mu.Unlock()
}

func (e *Engine) log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Info(msg)
	e.logs.Add("%s", msg)
}

func (e *Engine) emit(kind domain.EventKind, symbol, msg string, fields map[string]interface{}) {
	e.sink.Emit(domain.Event{
		Kind:    kind,
		Engine:  e.cfg.Name,
		Symbol:  symbol,
		Message: msg,
		Fields:  fields,
		Time:    e.now(),
	})
}
