// Package strategy holds the reference trading strategies and the indicator
// helpers they share. Indicator math is delegated to go-talib; talib leaves
// zeros in the lookback region, which these helpers replace with NaN so a
// Frame reports them as missing.
package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/achupradeep3050/crypto/internal/domain"
)

func closes(c []domain.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Close
	}
	return out
}

func highs(c []domain.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].High
	}
	return out
}

func lows(c []domain.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Low
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// masked replaces the first lookback values with NaN.
func masked(values []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

// shift moves values n rows later, so row i reads values[i-n].
func shift(values []float64, n int) []float64 {
	out := nanSeries(len(values))
	for i := n; i < len(values); i++ {
		out[i] = values[i-n]
	}
	return out
}

func ema(in []float64, period int) []float64 {
	if len(in) < period {
		return nanSeries(len(in))
	}
	return masked(talib.Ema(in, period), period-1)
}

func tema(in []float64, period int) []float64 {
	lookback := 3 * (period - 1)
	if len(in) <= lookback {
		return nanSeries(len(in))
	}
	return masked(talib.Tema(in, period), lookback)
}

func cmo(in []float64, period int) []float64 {
	if len(in) <= period {
		return nanSeries(len(in))
	}
	return masked(talib.Cmo(in, period), period)
}

func rsi(in []float64, period int) []float64 {
	if len(in) <= period {
		return nanSeries(len(in))
	}
	return masked(talib.Rsi(in, period), period)
}

func adx(c []domain.Candle, period int) []float64 {
	lookback := 2*period - 1
	if len(c) <= lookback {
		return nanSeries(len(c))
	}
	return masked(talib.Adx(highs(c), lows(c), closes(c), period), lookback)
}

func atr(c []domain.Candle, period int) []float64 {
	if len(c) <= period {
		return nanSeries(len(c))
	}
	return masked(talib.Atr(highs(c), lows(c), closes(c), period), period)
}

func bbands(in []float64, period int, dev float64) (upper, middle, lower []float64) {
	if len(in) < period {
		return nanSeries(len(in)), nanSeries(len(in)), nanSeries(len(in))
	}
	upper, middle, lower = talib.BBands(in, period, dev, dev, talib.SMA)
	return masked(upper, period-1), masked(middle, period-1), masked(lower, period-1)
}

func rollingMax(in []float64, period int) []float64 {
	if len(in) < period {
		return nanSeries(len(in))
	}
	return masked(talib.Max(in, period), period-1)
}

func rollingMin(in []float64, period int) []float64 {
	if len(in) < period {
		return nanSeries(len(in))
	}
	return masked(talib.Min(in, period), period-1)
}

// barDuration is the smallest positive spacing between consecutive bars.
func barDuration(c []domain.Candle) int64 {
	var d int64
	for i := 1; i < len(c); i++ {
		if gap := c[i].Time - c[i-1].Time; gap > 0 && (d == 0 || gap < d) {
			d = gap
		}
	}
	return d
}

// alignHigher maps a higher-timeframe series onto the current bars. Each
// current bar sees the newest higher bar that had closed by the time the
// current bar closed, so no row reads a future value.
func alignHigher(current, higher []domain.Candle, values []float64) []float64 {
	out := nanSeries(len(current))
	curDur, hiDur := barDuration(current), barDuration(higher)

	j := -1
	for i, c := range current {
		closeAt := c.Time + curDur
		for j+1 < len(higher) && higher[j+1].Time+hiDur <= closeAt {
			j++
		}
		if j >= 0 {
			out[i] = values[j]
		}
	}
	return out
}

// valuesAt fetches several series at row i; ok is false if any is missing.
func valuesAt(f *domain.Frame, i int, names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	for k, name := range names {
		v, ok := f.Value(name, i)
		if !ok {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

// atrBracket places stop and target around entry at the given ATR multiples.
func atrBracket(sig domain.Signal, entry, atr, slMult, tpMult float64) domain.EntryParams {
	sl, tp := atr*slMult, atr*tpMult
	if sig == domain.SignalShort {
		return domain.EntryParams{Entry: entry, Stop: entry + sl, Target: entry - tp}
	}
	return domain.EntryParams{Entry: entry, Stop: entry - sl, Target: entry + tp}
}
