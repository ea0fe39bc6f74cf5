package strategy

import (
	"math"
	"testing"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trend builds n bars spaced step seconds apart, rising by drift per bar
// with a small zigzag so ranges are never empty.
func trend(n int, step int64, start, drift float64) []domain.Candle {
	out := make([]domain.Candle, n)
	p := start
	for i := range out {
		wiggle := 0.5
		if i%2 == 1 {
			wiggle = -0.5
		}
		c := p + wiggle
		out[i] = domain.Candle{
			Time:   int64(i) * step,
			Open:   p,
			High:   math.Max(p, c) + 1,
			Low:    math.Min(p, c) - 1,
			Close:  c,
			Volume: 10,
		}
		p += drift
	}
	return out
}

func TestMaskedAndShift(t *testing.T) {
	v := masked([]float64{1, 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(v[0]))
	assert.True(t, math.IsNaN(v[1]))
	assert.Equal(t, 3.0, v[2])

	s := shift([]float64{1, 2, 3}, 1)
	assert.True(t, math.IsNaN(s[0]))
	assert.Equal(t, []float64{1, 2}, s[1:])
}

func TestShortInputsYieldNaN(t *testing.T) {
	c := trend(5, 60, 100, 1)
	for _, series := range [][]float64{
		ema(closes(c), 10),
		tema(closes(c), 10),
		rsi(closes(c), 14),
		adx(c, 14),
		atr(c, 14),
	} {
		require.Len(t, series, 5)
		for _, v := range series {
			assert.True(t, math.IsNaN(v))
		}
	}
}

func TestEMALookback(t *testing.T) {
	c := closes(trend(60, 60, 100, 1))
	e := ema(c, 20)
	assert.True(t, math.IsNaN(e[18]))
	assert.False(t, math.IsNaN(e[19]))
	assert.InDelta(t, c[59], e[59], 15)
}

func TestAlignHigherIsCausal(t *testing.T) {
	current := trend(16, 3600, 100, 1) // 1h bars from t=0
	higher := trend(4, 4*3600, 100, 4) // 4h bars from t=0
	marks := []float64{10, 20, 30, 40}

	got := alignHigher(current, higher, marks)

	// hours 0..2 close before the first 4h bar closes
	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(got[i]), "row %d", i)
	}
	// the 03:00 bar closes at 04:00 together with the first 4h bar
	assert.Equal(t, 10.0, got[3])
	assert.Equal(t, 10.0, got[6])
	assert.Equal(t, 20.0, got[7])
	assert.Equal(t, 40.0, got[15])
}

func TestBarDuration(t *testing.T) {
	assert.Equal(t, int64(300), barDuration(trend(5, 300, 1, 0)))
	assert.Equal(t, int64(0), barDuration(trend(1, 300, 1, 0)))
}

func TestAtrBracket(t *testing.T) {
	long := atrBracket(domain.SignalLong, 100, 2, 1.5, 4.5)
	assert.Equal(t, domain.EntryParams{Entry: 100, Stop: 97, Target: 109}, long)

	short := atrBracket(domain.SignalShort, 100, 2, 1, 1.5)
	assert.Equal(t, domain.EntryParams{Entry: 100, Stop: 102, Target: 97}, short)
}
