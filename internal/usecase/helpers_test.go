package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetCandles(ctx context.Context, symbol, timeframe string, n int) ([]domain.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, n)
	candles, _ := args.Get(0).([]domain.Candle)
	return candles, args.Error(1)
}

func (m *mockGateway) GetAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	args := m.Called(ctx)
	acc, _ := args.Get(0).(*domain.AccountSnapshot)
	return acc, args.Error(1)
}

func (m *mockGateway) SubmitOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResult, error) {
	args := m.Called(ctx, order)
	res, _ := args.Get(0).(*domain.OrderResult)
	return res, args.Error(1)
}

type seriesKey struct{ symbol, timeframe string }

// memStore is an in-memory CandleRepository and TradeRepository.
type memStore struct {
	mu      sync.Mutex
	candles map[seriesKey]map[int64]domain.Candle
	logs    []*domain.TradeLog
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{candles: make(map[seriesKey]map[int64]domain.Candle)}
}

func (s *memStore) GetRange(_ context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Candle
	for t, c := range s.candles[seriesKey{symbol, timeframe}] {
		if t >= start && t <= end {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (s *memStore) SaveCandles(_ context.Context, symbol, timeframe string, candles []domain.Candle) (int, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seriesKey{symbol, timeframe}
	if s.candles[key] == nil {
		s.candles[key] = make(map[int64]domain.Candle)
	}
	inserted := 0
	for _, c := range candles {
		if _, ok := s.candles[key][c.Time]; ok {
			continue
		}
		s.candles[key][c.Time] = c
		inserted++
	}
	return inserted, nil
}

func (s *memStore) CountBySeries(context.Context) ([]domain.SeriesCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SeriesCount
	for k, v := range s.candles {
		out = append(out, domain.SeriesCount{Symbol: k.symbol, Timeframe: k.timeframe, Count: len(v)})
	}
	return out, nil
}

func (s *memStore) SaveTradeLog(_ context.Context, l *domain.TradeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, l)
	return nil
}

func (s *memStore) ListTradeLogs(_ context.Context, limit int) ([]*domain.TradeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TradeLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingSink) count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fakeConn struct {
	connected bool
	balance   float64
}

func (f *fakeConn) Connected() bool { return f.connected }

func (f *fakeConn) Account() domain.AccountSnapshot {
	return domain.AccountSnapshot{Balance: f.balance, Equity: f.balance}
}

type fixedRisk float64

func (r fixedRisk) RiskPercent() float64 { return float64(r) }

// stubStrategy is scripted through function fields; nil fields mean "no".
type stubStrategy struct {
	warmup       int
	insufficient bool
	panicSignal  bool
	signal       func(f *domain.Frame) domain.Signal
	exit         func(f *domain.Frame, open domain.Direction) bool
	params       func(sig domain.Signal, f *domain.Frame) (domain.EntryParams, error)
	size         float64

	mu         sync.Mutex
	higherSeen []bool
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Warmup() int { return s.warmup }

func (s *stubStrategy) ComputeIndicators(current, higher []domain.Candle) (*domain.Frame, error) {
	s.mu.Lock()
	s.higherSeen = append(s.higherSeen, higher != nil)
	s.mu.Unlock()
	if s.insufficient {
		return nil, nil
	}
	return domain.NewFrame(current), nil
}

func (s *stubStrategy) Signal(f *domain.Frame) domain.Signal {
	if s.panicSignal {
		panic("boom")
	}
	if s.signal == nil {
		return domain.SignalNone
	}
	return s.signal(f)
}

func (s *stubStrategy) ExitSignal(f *domain.Frame, open domain.Direction) bool {
	if s.exit == nil {
		return false
	}
	return s.exit(f, open)
}

func (s *stubStrategy) EntryParams(sig domain.Signal, f *domain.Frame) (domain.EntryParams, error) {
	if s.params == nil {
		return domain.EntryParams{}, nil
	}
	return s.params(sig, f)
}

func (s *stubStrategy) PositionSize(float64) (float64, bool) {
	if s.size > 0 {
		return s.size, true
	}
	return 0, false
}

func always(sig domain.Signal) func(*domain.Frame) domain.Signal {
	return func(*domain.Frame) domain.Signal { return sig }
}

// flatCandles returns n one-minute bars all trading at price.
func flatCandles(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			Time:   int64(60 * (i + 1)),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1,
		}
	}
	return out
}
