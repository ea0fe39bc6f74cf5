package domain

type Signal string

const (
	SignalNone  Signal = ""
	SignalLong  Signal = "long"
	SignalShort Signal = "short"
)

func (s Signal) Direction() Direction {
	if s == SignalShort {
		return DirectionShort
	}
	return DirectionLong
}

// EntryParams are the prices a strategy proposes for a new position.
// Stop and Target are zero when the strategy does not set them.
type EntryParams struct {
	Entry  float64
	Stop   float64
	Target float64
}

// Strategy is the decision unit shared by the live engine and the backtest
// simulator. Implementations must be stateless between calls.
type Strategy interface {
	Name() string

	// Warmup is the number of bars the slowest indicator needs.
	Warmup() int

	// ComputeIndicators enriches the current window. higher is nil for
	// single-timeframe modes. A nil frame means insufficient history.
	ComputeIndicators(current, higher []Candle) (*Frame, error)

	// Signal is evaluated on the last closed bar of f.
	Signal(f *Frame) Signal

	// ExitSignal is evaluated on the newest row of f, which live may still
	// be forming, so an open position reacts within the current bar.
	ExitSignal(f *Frame, open Direction) bool

	EntryParams(sig Signal, f *Frame) (EntryParams, error)

	// PositionSize overrides risk sizing when ok is true.
	PositionSize(balance float64) (size float64, ok bool)
}
