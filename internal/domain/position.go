package domain

import "time"

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Opposite returns the direction that closes a position opened in d.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// Action maps a direction onto the gateway's order action.
func (d Direction) Action() OrderAction {
	if d == DirectionLong {
		return ActionBuy
	}
	return ActionSell
}

type ExitReason string

const (
	ExitSignal      ExitReason = "signal"
	ExitTakeProfit  ExitReason = "take_profit"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitLiquidation ExitReason = "liquidation"
)

// Position is the single open position an engine tracks for a symbol.
// Stop and Target are zero when not set.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	Size       float64   `json:"size"`
	Stop       float64   `json:"stop,omitempty"`
	Target     float64   `json:"target,omitempty"`
	OpenTime   int64     `json:"open_time"`
}

// PnL is the realized profit of closing the position at exit.
func (p *Position) PnL(exit float64) float64 {
	if p.Direction == DirectionShort {
		return (p.EntryPrice - exit) * p.Size
	}
	return (exit - p.EntryPrice) * p.Size
}

// Close turns the position into an immutable Trade record.
func (p *Position) Close(exitTime int64, exitPrice, pnl float64, reason ExitReason) Trade {
	return Trade{
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		EntryTime:  p.OpenTime,
		ExitTime:   exitTime,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       p.Size,
		PnL:        pnl,
		Reason:     reason,
	}
}

// Trade represents a closed position.
type Trade struct {
	Symbol     string     `json:"symbol" csv:"symbol"`
	Direction  Direction  `json:"direction" csv:"direction"`
	EntryTime  int64      `json:"entry_time" csv:"entry_time"`
	ExitTime   int64      `json:"exit_time" csv:"exit_time"`
	EntryPrice float64    `json:"entry_price" csv:"entry_price"`
	ExitPrice  float64    `json:"exit_price" csv:"exit_price"`
	Size       float64    `json:"size" csv:"size"`
	PnL        float64    `json:"pnl" csv:"pnl"`
	Reason     ExitReason `json:"reason" csv:"reason"`
}

// TradeLog is a row of the persisted order ledger.
type TradeLog struct {
	ID        int64     `db:"id" json:"id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Strategy  string    `db:"strategy" json:"strategy"`
	Action    string    `db:"action" json:"action"`
	Price     float64   `db:"price" json:"price"`
	Volume    float64   `db:"volume" json:"volume"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Result    string    `db:"result" json:"result"`
}
