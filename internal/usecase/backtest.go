package usecase

import (
	"errors"
	"math"

	"github.com/achupradeep3050/crypto/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// maxPricePoints caps the display price series.
const maxPricePoints = 2000

type SimulationInput struct {
	Symbol       string
	Candles      []domain.Candle
	Higher       []domain.Candle // nil for single-timeframe strategies
	StartBalance float64
	RiskPercent  float64
	Warmup       int
	Constraints  *domain.VolumeConstraints
}

type EquityPoint struct {
	Time   int64   `json:"time" csv:"time"`
	Equity float64 `json:"equity" csv:"equity"`
}

type PricePoint struct {
	Time  int64   `json:"time" csv:"time"`
	Close float64 `json:"close" csv:"close"`
}

type Stats struct {
	ROI          float64 `json:"roi_pct" structs:"roi_pct"`
	MaxDrawdown  float64 `json:"max_drawdown_pct" structs:"max_drawdown_pct"`
	Sharpe       float64 `json:"sharpe" structs:"sharpe"`
	ProfitFactor float64 `json:"profit_factor" structs:"profit_factor"`
}

type Result struct {
	Symbol       string         `json:"symbol"`
	Strategy     string         `json:"strategy"`
	StartBalance float64        `json:"start_balance"`
	FinalBalance float64        `json:"final_balance"`
	Trades       []domain.Trade `json:"trades"`
	Equity       []EquityPoint  `json:"equity_curve"`
	Prices       []PricePoint   `json:"price_data"`
	TotalTrades  int            `json:"total_trades"`
	WinRate      float64        `json:"win_rate"`
	Liquidated   bool           `json:"liquidated"`
	Stats        Stats          `json:"stats"`
}

// Simulate replays in.Candles through s bar by bar. It makes no I/O calls.
//
// Indicators are computed once over the whole series and each bar sees the
// head of the frame up to itself, so strategies must only use causal
// indicators. An open position exits on a stop touch first, then a target
// touch, then the strategy exit signal at the bar close.
func Simulate(s domain.Strategy, in SimulationInput) (Result, error) {
	res := Result{
		Symbol:       in.Symbol,
		Strategy:     s.Name(),
		StartBalance: in.StartBalance,
		FinalBalance: in.StartBalance,
		Trades:       []domain.Trade{},
		Equity:       []EquityPoint{},
		Prices:       downsample(in.Candles),
	}
	if len(in.Candles) == 0 {
		return res, nil
	}

	higher := in.Higher
	if len(higher) == 0 {
		higher = nil
	}

	var frame *domain.Frame
	err := guard("compute indicators", func() error {
		var cerr error
		frame, cerr = s.ComputeIndicators(in.Candles, higher)
		return cerr
	})
	if errors.Is(err, domain.ErrInsufficientHistory) || (err == nil && frame.Len() == 0) {
		return res, nil
	}
	if err != nil {
		return res, err
	}

	warmup := s.Warmup()
	if in.Warmup > warmup {
		warmup = in.Warmup
	}

	balance := in.StartBalance
	var pos *domain.Position

	for i := warmup; i < frame.Len(); i++ {
		bar := frame.Candles[i]
		window := frame.Head(i + 1)

		if pos != nil {
			reason, exitPrice := exitFor(s, pos, bar, window)
			if reason != "" {
				pnl := pos.PnL(exitPrice)
				if balance+pnl <= 0 {
					pnl = -balance
					balance = 0
					res.Trades = append(res.Trades, pos.Close(bar.Time, exitPrice, pnl, domain.ExitLiquidation))
					res.Equity = append(res.Equity, EquityPoint{Time: bar.Time, Equity: 0})
					res.Liquidated = true
					break
				}
				balance += pnl
				res.Trades = append(res.Trades, pos.Close(bar.Time, exitPrice, pnl, reason))
				pos = nil
			}
		}

		if pos == nil {
			pos = entryFor(s, in, window, bar, balance)
		}

		res.Equity = append(res.Equity, EquityPoint{Time: bar.Time, Equity: balance})
	}

	res.FinalBalance = balance
	res.TotalTrades = len(res.Trades)
	res.WinRate = winRate(res.Trades)
	res.Stats = summarize(in.StartBalance, balance, res.Trades, res.Equity)
	return res, nil
}

func exitFor(s domain.Strategy, pos *domain.Position, bar domain.Candle, window *domain.Frame) (domain.ExitReason, float64) {
	long := pos.Direction == domain.DirectionLong

	if pos.Stop > 0 && ((long && bar.Low <= pos.Stop) || (!long && bar.High >= pos.Stop)) {
		return domain.ExitStopLoss, pos.Stop
	}
	if pos.Target > 0 && ((long && bar.High >= pos.Target) || (!long && bar.Low <= pos.Target)) {
		return domain.ExitTakeProfit, pos.Target
	}

	var exit bool
	// a failing exit check keeps the position open
	_ = guard("exit signal", func() error {
		exit = s.ExitSignal(window, pos.Direction)
		return nil
	})
	if exit {
		return domain.ExitSignal, bar.Close
	}
	return "", 0
}

func entryFor(s domain.Strategy, in SimulationInput, window *domain.Frame, bar domain.Candle, balance float64) *domain.Position {
	var sig domain.Signal
	if err := guard("signal", func() error {
		sig = s.Signal(window)
		return nil
	}); err != nil || sig == domain.SignalNone {
		return nil
	}

	var params domain.EntryParams
	if err := guard("entry params", func() error {
		var perr error
		params, perr = s.EntryParams(sig, window)
		return perr
	}); err != nil {
		return nil
	}

	entry := bar.Close
	size := positionSize(s, balance, in.RiskPercent, entry, params.Stop, in.Constraints)
	if size <= 0 {
		return nil
	}
	return &domain.Position{
		Symbol:     in.Symbol,
		Direction:  sig.Direction(),
		EntryPrice: entry,
		Size:       size,
		Stop:       params.Stop,
		Target:     params.Target,
		OpenTime:   bar.Time,
	}
}

func winRate(trades []domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

func downsample(candles []domain.Candle) []PricePoint {
	step := 1
	if len(candles) > maxPricePoints {
		step = len(candles) / maxPricePoints
	}
	out := make([]PricePoint, 0, len(candles)/step+1)
	for i := 0; i < len(candles); i += step {
		out = append(out, PricePoint{Time: candles[i].Time, Close: candles[i].Close})
	}
	return out
}

func summarize(start, final float64, trades []domain.Trade, equity []EquityPoint) Stats {
	var st Stats
	if start > 0 {
		st.ROI = (final - start) / start * 100
	}

	peak := start
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak * 100; dd > st.MaxDrawdown {
				st.MaxDrawdown = dd
			}
		}
	}

	returns := make([]float64, 0, len(equity))
	prev := start
	for _, p := range equity {
		if prev > 0 {
			returns = append(returns, (p.Equity-prev)/prev)
		}
		prev = p.Equity
	}
	if len(returns) >= 2 {
		mean, std := stat.MeanStdDev(returns, nil)
		if std > 0 && !math.IsNaN(std) {
			st.Sharpe = mean / std * math.Sqrt(float64(len(returns)))
		}
	}

	var gross, loss float64
	for _, t := range trades {
		if t.PnL > 0 {
			gross += t.PnL
		} else {
			loss -= t.PnL
		}
	}
	// 0 when there are no losing trades; JSON cannot carry +Inf
	if loss > 0 {
		st.ProfitFactor = gross / loss
	}
	return st
}
