package domain

import "math"

// Candle is one OHLCV bar. Time is the bar open in unix seconds.
type Candle struct {
	Time   int64   `json:"time" db:"time" csv:"time"`
	Open   float64 `json:"open" db:"open" csv:"open"`
	High   float64 `json:"high" db:"high" csv:"high"`
	Low    float64 `json:"low" db:"low" csv:"low"`
	Close  float64 `json:"close" db:"close" csv:"close"`
	Volume float64 `json:"volume" db:"volume" csv:"volume"`
}

// Frame is a candle window enriched with indicator series aligned row by
// row with Candles. Missing indicator values are stored as NaN.
type Frame struct {
	Candles []Candle
	series  map[string][]float64
	order   []string
}

func NewFrame(candles []Candle) *Frame {
	return &Frame{
		Candles: candles,
		series:  make(map[string][]float64),
	}
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Candles)
}

// Set attaches a series. Shorter series are left-padded with NaN so that the
// last value lines up with the last candle.
func (f *Frame) Set(name string, values []float64) {
	n := len(f.Candles)
	aligned := make([]float64, n)
	offset := n - len(values)
	for i := range aligned {
		j := i - offset
		if j < 0 || j >= len(values) {
			aligned[i] = math.NaN()
			continue
		}
		aligned[i] = values[j]
	}
	if _, ok := f.series[name]; !ok {
		f.order = append(f.order, name)
	}
	f.series[name] = aligned
}

// Value returns the named series at row i; ok is false when the series is
// unknown, i is out of range or the value is NaN.
func (f *Frame) Value(name string, i int) (float64, bool) {
	if f == nil || i < 0 || i >= len(f.Candles) {
		return 0, false
	}
	s, ok := f.series[name]
	if !ok || i >= len(s) || math.IsNaN(s[i]) {
		return 0, false
	}
	return s[i], true
}

// Head returns a view of the first n rows. Series share backing arrays.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.Candles) {
		n = len(f.Candles)
	}
	if n < 0 {
		n = 0
	}
	h := &Frame{
		Candles: f.Candles[:n],
		series:  make(map[string][]float64, len(f.series)),
		order:   f.order,
	}
	for k, v := range f.series {
		h.series[k] = v[:n]
	}
	return h
}

// Last is the index of the newest row, which may still be forming live.
func (f *Frame) Last() int { return f.Len() - 1 }

// Closed is the index of the last fully closed candle.
func (f *Frame) Closed() int { return f.Len() - 2 }

// Row flattens row i into a map for display. NaN values are dropped.
func (f *Frame) Row(i int) map[string]float64 {
	if f == nil || i < 0 || i >= len(f.Candles) {
		return nil
	}
	c := f.Candles[i]
	row := map[string]float64{
		"time":   float64(c.Time),
		"open":   c.Open,
		"high":   c.High,
		"low":    c.Low,
		"close":  c.Close,
		"volume": c.Volume,
	}
	for _, name := range f.order {
		if v, ok := f.Value(name, i); ok {
			row[name] = v
		}
	}
	return row
}

// Series names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}
