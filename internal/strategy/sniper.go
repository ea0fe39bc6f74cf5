package strategy

import (
	"fmt"

	"github.com/achupradeep3050/crypto/internal/domain"
)

// Sniper is a short-period RSI mean-reversion strategy, optionally
// confirmed by a Bollinger band pierce.
type Sniper struct {
	BBLength  int
	BBStd     float64
	RSILength int
	RSILow    float64
	RSIHigh   float64
	UseBands  bool
	SLAtrMult float64
	TPAtrMult float64
	FixedLot  float64
}

func NewSniper() *Sniper {
	return &Sniper{
		BBLength:  20,
		BBStd:     2.0,
		RSILength: 2,
		RSILow:    5,
		RSIHigh:   95,
		SLAtrMult: 1.0,
		TPAtrMult: 1.5,
		FixedLot:  0.02,
	}
}

func (s *Sniper) Name() string { return "sniper" }

func (s *Sniper) Warmup() int { return s.BBLength + 10 }

func (s *Sniper) ComputeIndicators(current, _ []domain.Candle) (*domain.Frame, error) {
	if len(current) < s.BBLength+10 {
		return nil, nil
	}

	c := closes(current)
	upper, middle, lower := bbands(c, s.BBLength, s.BBStd)

	f := domain.NewFrame(current)
	f.Set("bbl", lower)
	f.Set("bbm", middle)
	f.Set("bbu", upper)
	f.Set("rsi", rsi(c, s.RSILength))
	f.Set("atr", atr(current, 14))
	return f, nil
}

func (s *Sniper) Signal(f *domain.Frame) domain.Signal {
	i := f.Closed()
	r, ok := f.Value("rsi", i)
	if !ok {
		return domain.SignalNone
	}
	long, short := r < s.RSILow, r > s.RSIHigh

	if s.UseBands {
		bands, ok := valuesAt(f, i, "bbl", "bbu")
		if !ok {
			return domain.SignalNone
		}
		bar := f.Candles[i]
		long = long && bar.Low < bands[0]
		short = short && bar.High > bands[1]
	}

	switch {
	case long:
		return domain.SignalLong
	case short:
		return domain.SignalShort
	}
	return domain.SignalNone
}

// ExitSignal closes once RSI on the forming bar crosses back over 50.
func (s *Sniper) ExitSignal(f *domain.Frame, open domain.Direction) bool {
	r, ok := f.Value("rsi", f.Last())
	if !ok {
		return false
	}
	if open == domain.DirectionLong {
		return r > 50
	}
	return r < 50
}

func (s *Sniper) EntryParams(sig domain.Signal, f *domain.Frame) (domain.EntryParams, error) {
	i := f.Last()
	a, ok := f.Value("atr", i)
	if !ok || sig == domain.SignalNone {
		return domain.EntryParams{}, fmt.Errorf("sniper: no ATR at row %d", i)
	}
	return atrBracket(sig, f.Candles[i].Close, a, s.SLAtrMult, s.TPAtrMult), nil
}

func (s *Sniper) PositionSize(float64) (float64, bool) {
	return s.FixedLot, s.FixedLot > 0
}
