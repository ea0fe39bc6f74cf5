package strategy

import (
	"fmt"

	"github.com/achupradeep3050/crypto/internal/domain"
)

// Breakout trades closes beyond the prior N-bar channel in the direction of
// a long EMA trend, filtered by ADX. It trades a fixed lot.
type Breakout struct {
	Period    int
	AdxMin    float64
	EmaLength int
	SLAtrMult float64
	RR        float64
	FixedLot  float64
}

func NewBreakout() *Breakout {
	return &Breakout{
		Period:    50,
		AdxMin:    25,
		EmaLength: 200,
		SLAtrMult: 1.5,
		RR:        3,
		FixedLot:  0.10,
	}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) Warmup() int { return s.EmaLength }

func (s *Breakout) ComputeIndicators(current, _ []domain.Candle) (*domain.Frame, error) {
	if len(current) < s.Period+10 {
		return nil, nil
	}

	f := domain.NewFrame(current)
	// shifted one bar so a candle never breaks out of its own range
	f.Set("high_n", shift(rollingMax(highs(current), s.Period), 1))
	f.Set("low_n", shift(rollingMin(lows(current), s.Period), 1))
	f.Set("ema_trend", ema(closes(current), s.EmaLength))
	f.Set("adx", adx(current, 14))
	f.Set("atr", atr(current, 14))
	return f, nil
}

func (s *Breakout) Signal(f *domain.Frame) domain.Signal {
	i := f.Closed()
	v, ok := valuesAt(f, i, "ema_trend", "adx", "high_n", "low_n")
	if !ok {
		return domain.SignalNone
	}
	c := f.Candles[i].Close
	trend, strength, hi, lo := v[0], v[1], v[2], v[3]

	if strength <= s.AdxMin {
		return domain.SignalNone
	}
	switch {
	case c > trend && c > hi:
		return domain.SignalLong
	case c < trend && c < lo:
		return domain.SignalShort
	}
	return domain.SignalNone
}

// ExitSignal closes as soon as the forming bar crosses back through the
// trend EMA.
func (s *Breakout) ExitSignal(f *domain.Frame, open domain.Direction) bool {
	i := f.Last()
	trend, ok := f.Value("ema_trend", i)
	if !ok {
		return false
	}
	c := f.Candles[i].Close
	if open == domain.DirectionLong {
		return c < trend
	}
	return c > trend
}

func (s *Breakout) EntryParams(sig domain.Signal, f *domain.Frame) (domain.EntryParams, error) {
	i := f.Last()
	a, ok := f.Value("atr", i)
	if !ok || sig == domain.SignalNone {
		return domain.EntryParams{}, fmt.Errorf("breakout: no ATR at row %d", i)
	}
	return atrBracket(sig, f.Candles[i].Close, a, s.SLAtrMult, s.SLAtrMult*s.RR), nil
}

func (s *Breakout) PositionSize(float64) (float64, bool) {
	return s.FixedLot, s.FixedLot > 0
}
