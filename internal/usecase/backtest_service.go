package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

type BacktestRequest struct {
	Strategy     string      `json:"strategy"`
	Symbol       string      `json:"symbol"`
	Mode         domain.Mode `json:"mode"`
	Start        int64       `json:"start"`
	End          int64       `json:"end"`
	StartBalance float64     `json:"start_balance"`
}

type BacktestJob struct {
	ID       string          `json:"id"`
	Request  BacktestRequest `json:"request"`
	State    JobState        `json:"state"`
	Error    string          `json:"error,omitempty"`
	Result   *Result         `json:"result,omitempty"`
	Created  time.Time       `json:"created"`
	Finished time.Time       `json:"finished,omitempty"`

	done chan struct{}
}

// StrategyFactory builds a fresh strategy by registry name.
type StrategyFactory func(name string) (domain.Strategy, error)

type BacktestConfig struct {
	Warmup       int
	StartBalance float64
	Specs        map[string]domain.SymbolSpec
}

// BacktestService runs simulations on its own worker goroutines so a long
// replay never blocks the live engines.
type BacktestService struct {
	loader     *CandleLoader
	strategies StrategyFactory
	risk       RiskSource
	cfg        BacktestConfig
	sink       domain.EventSink
	logger     *zap.Logger

	queue chan *BacktestJob
	mu    sync.RWMutex
	jobs  map[string]*BacktestJob
}

func NewBacktestService(loader *CandleLoader, strategies StrategyFactory, risk RiskSource, cfg BacktestConfig, sink domain.EventSink, logger *zap.Logger) *BacktestService {
	if sink == nil {
		sink = domain.NopSink{}
	}
	if cfg.StartBalance <= 0 {
		cfg.StartBalance = 1000
	}
	return &BacktestService{
		loader:     loader,
		strategies: strategies,
		risk:       risk,
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		queue:      make(chan *BacktestJob, 64),
		jobs:       make(map[string]*BacktestJob),
	}
}

// Start launches workers that drain the queue until ctx is cancelled.
func (s *BacktestService) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go s.worker(ctx)
	}
}

func (s *BacktestService) worker(ctx context.Context) {
	for {
		select {
		case job := <-s.queue:
			s.process(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *BacktestService) Submit(req BacktestRequest) (string, error) {
	if req.Symbol == "" || req.Strategy == "" || req.Mode.Current == "" {
		return "", fmt.Errorf("symbol, strategy and mode are required")
	}
	if req.End <= req.Start {
		return "", fmt.Errorf("end must be after start")
	}
	if _, err := s.strategies(req.Strategy); err != nil {
		return "", err
	}

	job := &BacktestJob{
		ID:      uuid.NewString(),
		Request: req,
		State:   JobPending,
		Created: time.Now(),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	select {
	case s.queue <- job:
	default:
		s.finish(job, nil, fmt.Errorf("backtest queue full"))
		return "", fmt.Errorf("backtest queue full")
	}
	s.logger.Info("Backtest queued", zap.String("id", job.ID), zap.String("symbol", req.Symbol), zap.String("strategy", req.Strategy))
	return job.ID, nil
}

// Get returns a snapshot of the job.
func (s *BacktestService) Get(id string) (BacktestJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return BacktestJob{}, false
	}
	return *job, true
}

// Wait blocks until the job finishes or ctx ends.
func (s *BacktestService) Wait(ctx context.Context, id string) (BacktestJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return BacktestJob{}, fmt.Errorf("unknown backtest %s", id)
	}
	select {
	case <-job.done:
		snap, _ := s.Get(id)
		return snap, nil
	case <-ctx.Done():
		return BacktestJob{}, ctx.Err()
	}
}

// Run executes req synchronously on the caller's goroutine.
func (s *BacktestService) Run(ctx context.Context, req BacktestRequest) (*Result, error) {
	strategy, err := s.strategies(req.Strategy)
	if err != nil {
		return nil, err
	}

	candles, err := s.loader.Load(ctx, req.Symbol, req.Mode.Current, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	var higher []domain.Candle
	if req.Mode.HasHigher() {
		higher, err = s.loader.Load(ctx, req.Symbol, *req.Mode.Higher, req.Start, req.End)
		if err != nil {
			return nil, err
		}
	}

	balance := req.StartBalance
	if balance <= 0 {
		balance = s.cfg.StartBalance
	}
	risk := 0.0
	if s.risk != nil {
		risk = s.risk.RiskPercent()
	}
	in := SimulationInput{
		Symbol:       req.Symbol,
		Candles:      candles,
		Higher:       higher,
		StartBalance: balance,
		RiskPercent:  risk,
		Warmup:       s.cfg.Warmup,
	}
	if spec, ok := s.cfg.Specs[req.Symbol]; ok {
		in.Constraints = spec.Volume
	}

	s.logger.Info("Backtest started",
		zap.String("symbol", req.Symbol),
		zap.String("strategy", strategy.Name()),
		zap.Int("candles", len(candles)),
		zap.Int("higher", len(higher)))

	res, err := Simulate(strategy, in)
	if err != nil {
		return nil, err
	}

	if res.Liquidated {
		s.sink.Emit(domain.Event{
			Kind:    domain.EventLiquidation,
			Symbol:  req.Symbol,
			Message: fmt.Sprintf("Backtest %s %s liquidated", strategy.Name(), req.Symbol),
			Time:    time.Now(),
		})
	}
	s.sink.Emit(domain.Event{
		Kind:    domain.EventBacktestFinished,
		Symbol:  req.Symbol,
		Message: fmt.Sprintf("Backtest %s %s: %d trades, final balance %.2f", strategy.Name(), req.Symbol, res.TotalTrades, res.FinalBalance),
		Fields: map[string]interface{}{
			"trades": res.TotalTrades, "final_balance": res.FinalBalance, "win_rate": res.WinRate,
		},
		Time: time.Now(),
	})
	return &res, nil
}

func (s *BacktestService) process(ctx context.Context, job *BacktestJob) {
	s.mu.Lock()
	job.State = JobRunning
	s.mu.Unlock()

	res, err := s.Run(ctx, job.Request)
	if err != nil {
		s.logger.Error("Backtest failed", zap.String("id", job.ID), zap.Error(err))
	}
	s.finish(job, res, err)
}

func (s *BacktestService) finish(job *BacktestJob, res *Result, err error) {
	s.mu.Lock()
	if err != nil {
		job.State = JobFailed
		job.Error = err.Error()
	} else {
		job.State = JobDone
		job.Result = res
	}
	job.Finished = time.Now()
	s.mu.Unlock()
	close(job.done)
}
