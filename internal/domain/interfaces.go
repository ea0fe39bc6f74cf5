package domain

import "context"

// Gateway is the remote execution venue.
type Gateway interface {
	GetCandles(ctx context.Context, symbol, timeframe string, n int) ([]Candle, error)
	GetAccount(ctx context.Context) (*AccountSnapshot, error)
	SubmitOrder(ctx context.Context, order OrderRequest) (*OrderResult, error)
}

// CandleRepository is the durable OHLCV cache keyed by (symbol, timeframe, time).
type CandleRepository interface {
	// GetRange returns candles with start <= time <= end in ascending order.
	GetRange(ctx context.Context, symbol, timeframe string, start, end int64) ([]Candle, error)
	// SaveCandles inserts new candles and ignores duplicates; it returns the
	// number of rows actually inserted.
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []Candle) (int, error)
	CountBySeries(ctx context.Context) ([]SeriesCount, error)
}

type SeriesCount struct {
	Symbol    string `db:"symbol" json:"symbol"`
	Timeframe string `db:"timeframe" json:"timeframe"`
	Count     int    `db:"count" json:"count"`
}

// TradeRepository persists the order ledger.
type TradeRepository interface {
	SaveTradeLog(ctx context.Context, log *TradeLog) error
	ListTradeLogs(ctx context.Context, limit int) ([]*TradeLog, error)
}
