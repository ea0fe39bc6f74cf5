package strategy

import (
	"math"
	"testing"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameWith builds a frame of n flat bars and sets the given series to a
// constant on every row.
func frameWith(n int, closePrice float64, series map[string]float64) *domain.Frame {
	c := make([]domain.Candle, n)
	for i := range c {
		c[i] = domain.Candle{Time: int64(i * 60), Open: closePrice, High: closePrice + 1, Low: closePrice - 1, Close: closePrice}
	}
	f := domain.NewFrame(c)
	for name, v := range series {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = v
		}
		f.Set(name, vals)
	}
	return f
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"breakout", "sniper", "tma"}, Names())

	s, err := New("TMA")
	require.NoError(t, err)
	assert.Equal(t, "tma", s.Name())

	_, err = New("martingale")
	assert.Error(t, err)

	a, _ := New("sniper")
	b, _ := New("sniper")
	assert.NotSame(t, a, b)
}

func TestTMA_RequiresHigherTimeframe(t *testing.T) {
	s := NewTMA()
	f, err := s.ComputeIndicators(trend(300, 3600, 100, 1), nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = s.ComputeIndicators(trend(300, 3600, 100, 1), trend(20, 4*3600, 100, 4))
	require.NoError(t, err)
	assert.Nil(t, f, "too few higher bars")
}

func TestTMA_ComputeIndicators(t *testing.T) {
	s := NewTMA()
	current := trend(800, 3600, 100, 0.5)
	higher := trend(200, 4*3600, 100, 2)

	f, err := s.ComputeIndicators(current, higher)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, len(current), f.Len())
	assert.ElementsMatch(t, []string{"close_high", "tema", "adx", "cmo", "atr"}, f.Names())

	_, ok := valuesAt(f, f.Closed(), "close_high", "tema", "adx", "cmo", "atr")
	assert.True(t, ok, "late rows carry every indicator")

	_, ok = f.Value("tema", 0)
	assert.False(t, ok)
}

func TestTMA_Signal(t *testing.T) {
	s := NewTMA()

	long := frameWith(5, 100, map[string]float64{"close_high": 110, "tema": 100, "adx": 30, "cmo": -60})
	assert.Equal(t, domain.SignalLong, s.Signal(long))

	short := frameWith(5, 100, map[string]float64{"close_high": 90, "tema": 100, "adx": 30, "cmo": 60})
	assert.Equal(t, domain.SignalShort, s.Signal(short))

	weak := frameWith(5, 100, map[string]float64{"close_high": 110, "tema": 100, "adx": 20, "cmo": -60})
	assert.Equal(t, domain.SignalNone, s.Signal(weak))

	assert.True(t, s.ExitSignal(short, domain.DirectionLong))
	assert.False(t, s.ExitSignal(long, domain.DirectionLong))

	p, err := s.EntryParams(domain.SignalLong, frameWith(5, 100, map[string]float64{"atr": 2}))
	require.NoError(t, err)
	assert.Equal(t, domain.EntryParams{Entry: 100, Stop: 94, Target: 112}, p)

	_, ok := s.PositionSize(1000)
	assert.False(t, ok)
}

func TestBreakout_Signal(t *testing.T) {
	s := NewBreakout()

	up := frameWith(5, 110, map[string]float64{"ema_trend": 100, "adx": 30, "high_n": 105, "low_n": 90})
	assert.Equal(t, domain.SignalLong, s.Signal(up))

	down := frameWith(5, 80, map[string]float64{"ema_trend": 100, "adx": 30, "high_n": 105, "low_n": 90})
	assert.Equal(t, domain.SignalShort, s.Signal(down))

	inside := frameWith(5, 101, map[string]float64{"ema_trend": 100, "adx": 30, "high_n": 105, "low_n": 90})
	assert.Equal(t, domain.SignalNone, s.Signal(inside))

	assert.True(t, s.ExitSignal(down, domain.DirectionLong))
	assert.True(t, s.ExitSignal(up, domain.DirectionShort))

	size, ok := s.PositionSize(123456)
	assert.True(t, ok)
	assert.Equal(t, 0.10, size)

	p, err := s.EntryParams(domain.SignalShort, frameWith(5, 100, map[string]float64{"atr": 2}))
	require.NoError(t, err)
	assert.Equal(t, 103.0, p.Stop)
	assert.Equal(t, 91.0, p.Target)
}

func TestBreakout_ComputeIndicators(t *testing.T) {
	s := NewBreakout()

	f, err := s.ComputeIndicators(trend(40, 900, 100, 1), nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = s.ComputeIndicators(trend(400, 900, 100, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, f)

	_, ok := f.Value("ema_trend", 198)
	assert.False(t, ok)
	_, ok = f.Value("ema_trend", 199)
	assert.True(t, ok)

	// channel excludes the bar itself
	hi, ok := f.Value("high_n", 100)
	require.True(t, ok)
	assert.Less(t, hi, f.Candles[100].High)
}

func TestSniper(t *testing.T) {
	s := NewSniper()

	oversold := frameWith(5, 100, map[string]float64{"rsi": 3, "bbl": 99.5, "bbu": 101})
	assert.Equal(t, domain.SignalLong, s.Signal(oversold))

	overbought := frameWith(5, 100, map[string]float64{"rsi": 97, "bbl": 99.5, "bbu": 101})
	assert.Equal(t, domain.SignalShort, s.Signal(overbought))

	s.UseBands = true
	// high 101 does not pierce the upper band at 101
	assert.Equal(t, domain.SignalNone, s.Signal(overbought))
	assert.Equal(t, domain.SignalLong, s.Signal(oversold))

	assert.True(t, s.ExitSignal(frameWith(5, 100, map[string]float64{"rsi": 60}), domain.DirectionLong))
	assert.False(t, s.ExitSignal(frameWith(5, 100, map[string]float64{"rsi": 60}), domain.DirectionShort))

	f, err := s.ComputeIndicators(trend(100, 300, 2000, -0.5), nil)
	require.NoError(t, err)
	require.NotNil(t, f)
	r, ok := f.Value("rsi", f.Closed())
	require.True(t, ok)
	assert.False(t, math.IsNaN(r))
	assert.GreaterOrEqual(t, r, 0.0)
	assert.LessOrEqual(t, r, 100.0)
}

func TestBreakout_SignalsWithWarmupPlusTwoBars(t *testing.T) {
	s := NewBreakout()
	f, err := s.ComputeIndicators(trend(s.Warmup()+2, 900, 100, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, f)

	_, ok := f.Value("ema_trend", f.Closed())
	assert.True(t, ok, "closed bar carries the trend EMA")

	f, err = s.ComputeIndicators(trend(s.Warmup(), 900, 100, 1), nil)
	require.NoError(t, err)
	_, ok = f.Value("ema_trend", f.Closed())
	assert.False(t, ok)
}

func TestExitSignalsReadFormingBar(t *testing.T) {
	// closed bar says stay in, forming bar says get out
	f := frameWith(5, 100, nil)
	f.Set("ema_trend", []float64{90, 90, 90, 90, 110})
	assert.True(t, NewBreakout().ExitSignal(f, domain.DirectionLong))

	f = frameWith(5, 100, nil)
	f.Set("rsi", []float64{10, 10, 10, 10, 60})
	assert.True(t, NewSniper().ExitSignal(f, domain.DirectionLong))

	f = frameWith(5, 100, nil)
	f.Set("close_high", []float64{110, 110, 110, 110, 90})
	f.Set("tema", []float64{100, 100, 100, 100, 100})
	assert.True(t, NewTMA().ExitSignal(f, domain.DirectionLong))
}
