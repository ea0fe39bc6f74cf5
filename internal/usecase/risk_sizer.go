package usecase

import (
	"math"

	"github.com/achupradeep3050/crypto/internal/domain"
)

// CalculateSize converts a risk budget into an order quantity.
//
// The quantity risks riskPercent of balance over the distance between entry
// and stop. With constraints, it is floored to the volume step and clamped
// to [Min, Max]. The result is rounded to 2 decimals. Invalid input yields 0.
func CalculateSize(balance, riskPercent, entry, stop float64, c *domain.VolumeConstraints) float64 {
	if balance <= 0 || entry <= 0 || stop <= 0 || entry == stop {
		return 0
	}

	raw := balance * riskPercent / 100 / math.Abs(entry-stop)

	if c != nil {
		if c.Step > 0 {
			// epsilon keeps 0.3/0.1 from flooring to 2
			raw = math.Floor(raw/c.Step+1e-9) * c.Step
		}
		if raw < c.Min {
			raw = c.Min
		}
		if c.Max > 0 && raw > c.Max {
			raw = c.Max
		}
	}

	return roundTo(raw, 2)
}

// positionSize prefers the strategy's own sizing hook over risk sizing.
func positionSize(s domain.Strategy, balance, riskPercent, entry, stop float64, c *domain.VolumeConstraints) float64 {
	if size, ok := s.PositionSize(balance); ok {
		return size
	}
	return CalculateSize(balance, riskPercent, entry, stop, c)
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
