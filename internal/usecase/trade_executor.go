package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"go.uber.org/zap"
)

const orderTimeout = 10 * time.Second

const (
	ResultOrderSent   = "ORDER_SENT"
	resultOrderFailed = "ORDER_FAILED"
)

// TradeExecutor submits orders through the gateway and records every
// attempt in the trade ledger.
type TradeExecutor struct {
	gateway domain.Gateway
	ledger  domain.TradeRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewTradeExecutor(gateway domain.Gateway, ledger domain.TradeRepository, logger *zap.Logger) *TradeExecutor {
	return &TradeExecutor{
		gateway: gateway,
		ledger:  ledger,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildOrder rounds prices to the symbol precision and fills the defaults.
func BuildOrder(symbol string, action domain.OrderAction, volume, price, sl, tp float64, orderType domain.OrderType, precision int) domain.OrderRequest {
	if orderType == "" {
		orderType = domain.OrderMarket
	}
	return domain.OrderRequest{
		Symbol:    symbol,
		Action:    action,
		Volume:    volume,
		Price:     roundTo(price, precision),
		SL:        roundTo(sl, precision),
		TP:        roundTo(tp, precision),
		OrderType: orderType,
		Deviation: domain.DefaultDeviation,
	}
}

// Execute sends req. A ledger write failure is logged and never masks the
// order outcome.
func (e *TradeExecutor) Execute(ctx context.Context, strategy string, req domain.OrderRequest) (*domain.OrderResult, error) {
	if req.Volume <= 0 {
		return nil, fmt.Errorf("%w: non-positive volume %v", domain.ErrOrderRejected, req.Volume)
	}

	ctx, cancel := context.WithTimeout(ctx, orderTimeout)
	defer cancel()

	e.logger.Info("Sending order",
		zap.String("symbol", req.Symbol),
		zap.String("action", string(req.Action)),
		zap.String("type", string(req.OrderType)),
		zap.Float64("volume", req.Volume),
		zap.Float64("price", req.Price),
		zap.Float64("sl", req.SL),
		zap.Float64("tp", req.TP))

	res, err := e.gateway.SubmitOrder(ctx, req)

	result := ResultOrderSent
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrOrderRejected, err)
		result = fmt.Sprintf("%s: %v", resultOrderFailed, err)
	}
	e.record(ctx, strategy, req, result)

	if err != nil {
		e.logger.Error("Order failed", zap.String("symbol", req.Symbol), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (e *TradeExecutor) record(ctx context.Context, strategy string, req domain.OrderRequest, result string) {
	if e.ledger == nil {
		return
	}
	entry := &domain.TradeLog{
		Symbol:    req.Symbol,
		Strategy:  strategy,
		Action:    string(req.Action),
		Price:     req.Price,
		Volume:    req.Volume,
		Timestamp: e.now(),
		Result:    result,
	}
	// the order context may already be spent
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.ledger.SaveTradeLog(saveCtx, entry); err != nil {
		e.logger.Warn("Failed to write trade ledger", zap.String("symbol", req.Symbol), zap.Error(err))
	}
}
