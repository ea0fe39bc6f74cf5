package strategy

import (
	"fmt"

	"github.com/achupradeep3050/crypto/internal/domain"
)

// TMA is a dual-timeframe pullback strategy. The higher timeframe gives the
// trend (close against TEMA) and its strength (ADX); the current timeframe
// times the entry with a CMO extreme against the trend.
type TMA struct {
	TemaLength    int
	CmoLength     int
	AdxLength     int
	AtrLength     int
	AdxThreshold  float64
	CmoOversold   float64
	CmoOverbought float64
	SLAtrMult     float64
	TPAtrMult     float64
}

func NewTMA() *TMA {
	return &TMA{
		TemaLength:    50,
		CmoLength:     10,
		AdxLength:     14,
		AtrLength:     14,
		AdxThreshold:  25,
		CmoOversold:   -50,
		CmoOverbought: 50,
		SLAtrMult:     3,
		TPAtrMult:     6,
	}
}

func (s *TMA) Name() string { return "tma" }

func (s *TMA) Warmup() int {
	return max(s.CmoLength, s.AtrLength) + 10
}

func (s *TMA) ComputeIndicators(current, higher []domain.Candle) (*domain.Frame, error) {
	if higher == nil || len(higher) < max(s.TemaLength, s.AdxLength)+10 {
		return nil, nil
	}
	if len(current) < s.CmoLength+10 {
		return nil, nil
	}

	hc := closes(higher)
	f := domain.NewFrame(current)
	f.Set("close_high", alignHigher(current, higher, hc))
	f.Set("tema", alignHigher(current, higher, tema(hc, s.TemaLength)))
	f.Set("adx", alignHigher(current, higher, adx(higher, s.AdxLength)))
	f.Set("cmo", cmo(closes(current), s.CmoLength))
	f.Set("atr", atr(current, s.AtrLength))
	return f, nil
}

func (s *TMA) Signal(f *domain.Frame) domain.Signal {
	v, ok := valuesAt(f, f.Closed(), "close_high", "tema", "adx", "cmo")
	if !ok {
		return domain.SignalNone
	}
	closeHigh, trend, strength, momentum := v[0], v[1], v[2], v[3]

	strong := strength > s.AdxThreshold
	switch {
	case strong && closeHigh > trend && momentum < s.CmoOversold:
		return domain.SignalLong
	case strong && closeHigh < trend && momentum > s.CmoOverbought:
		return domain.SignalShort
	}
	return domain.SignalNone
}

// ExitSignal closes when the higher-timeframe trend flips against the
// position. It reads the forming bar, unlike Signal.
func (s *TMA) ExitSignal(f *domain.Frame, open domain.Direction) bool {
	v, ok := valuesAt(f, f.Last(), "close_high", "tema")
	if !ok {
		return false
	}
	if open == domain.DirectionLong {
		return v[0] < v[1]
	}
	return v[0] > v[1]
}

func (s *TMA) EntryParams(sig domain.Signal, f *domain.Frame) (domain.EntryParams, error) {
	i := f.Last()
	a, ok := f.Value("atr", i)
	if !ok || sig == domain.SignalNone {
		return domain.EntryParams{}, fmt.Errorf("tma: no ATR at row %d", i)
	}
	return atrBracket(sig, f.Candles[i].Close, a, s.SLAtrMult, s.TPAtrMult), nil
}

func (s *TMA) PositionSize(float64) (float64, bool) { return 0, false }
