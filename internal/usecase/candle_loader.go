package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultFetchSize = 5000
	bulkFetchTimeout = 30 * time.Second
)

// CandleLoader reads backtest history from the store, filling an empty
// cache with the most recent fetchSize bars from the gateway.
//
// A window older than that batch stays empty; there is no gap filling.
type CandleLoader struct {
	store     domain.CandleRepository
	gateway   domain.Gateway
	fetchSize int
	logger    *zap.Logger
}

func NewCandleLoader(store domain.CandleRepository, gateway domain.Gateway, fetchSize int, logger *zap.Logger) *CandleLoader {
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}
	return &CandleLoader{
		store:     store,
		gateway:   gateway,
		fetchSize: fetchSize,
		logger:    logger,
	}
}

func (l *CandleLoader) Load(ctx context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	cached, err := l.store.GetRange(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	if l.gateway != nil {
		l.logger.Info("Backtest: fetching fresh data",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Int("n", l.fetchSize))

		fetchCtx, cancel := context.WithTimeout(ctx, bulkFetchTimeout)
		fresh, err := l.gateway.GetCandles(fetchCtx, symbol, timeframe, l.fetchSize)
		cancel()

		switch {
		case err != nil:
			l.logger.Warn("Backtest: fetch failed", zap.String("symbol", symbol), zap.Error(err))
		case len(fresh) > 0:
			inserted, err := l.store.SaveCandles(ctx, symbol, timeframe, fresh)
			if err != nil {
				return nil, fmt.Errorf("save fetched candles: %w", err)
			}
			l.logger.Info("Backtest: cached candles", zap.String("symbol", symbol), zap.Int("inserted", inserted))
		}
	}

	return l.store.GetRange(ctx, symbol, timeframe, start, end)
}
