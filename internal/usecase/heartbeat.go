package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"go.uber.org/zap"
)

const accountTimeout = 5 * time.Second

// Connectivity is the read side of the heartbeat used by trading logic.
type Connectivity interface {
	Connected() bool
	Account() domain.AccountSnapshot
}

// Heartbeat polls the gateway account endpoint and tracks connectivity.
// It is the only writer of the account snapshot and connection state.
type Heartbeat struct {
	gateway domain.Gateway
	sink    domain.EventSink
	logger  *zap.Logger

	mu        sync.RWMutex
	state     domain.ConnState
	account   domain.AccountSnapshot
	lastErr   error
	connected bool // a beat has succeeded at least once
}

func NewHeartbeat(gateway domain.Gateway, sink domain.EventSink, logger *zap.Logger) *Heartbeat {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Heartbeat{
		gateway: gateway,
		sink:    sink,
		logger:  logger,
	}
}

func (h *Heartbeat) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Beat(ctx)
	for {
		select {
		case <-ticker.C:
			h.Beat(ctx)
		case <-ctx.Done():
			h.logger.Info("Heartbeat stopped")
			return
		}
	}
}

// Beat performs one account check and returns the resulting state.
// Events are emitted only when the state changes.
func (h *Heartbeat) Beat(ctx context.Context) domain.ConnState {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	acc, err := h.gateway.GetAccount(ctx)

	h.mu.Lock()
	prev := h.state
	wasUp := h.connected
	if err != nil {
		h.state = domain.ConnDisconnected
		h.lastErr = err
	} else {
		h.state = domain.ConnConnected
		h.connected = true
		h.lastErr = nil
		h.account = *acc
		if h.account.UpdatedAt.IsZero() {
			h.account.UpdatedAt = time.Now()
		}
	}
	next := h.state
	h.mu.Unlock()

	if prev == next {
		return next
	}

	switch next {
	case domain.ConnDisconnected:
		// a gateway that never answered has nothing to lose
		if prev != domain.ConnConnected {
			h.logger.Warn("Gateway unreachable", zap.Error(err))
			return next
		}
		h.logger.Warn("Connection lost", zap.Error(err))
		h.sink.Emit(domain.Event{
			Kind:    domain.EventConnectionLost,
			Message: "Connection lost to gateway",
			Fields:  map[string]interface{}{"error": err.Error()},
			Time:    time.Now(),
		})
	case domain.ConnConnected:
		msg := "Connection to gateway restored"
		if !wasUp {
			msg = "Connection to gateway established"
		}
		h.logger.Info(msg, zap.Float64("balance", acc.Balance))
		h.sink.Emit(domain.Event{
			Kind:    domain.EventConnectionRestored,
			Message: msg,
			Fields:  map[string]interface{}{"balance": acc.Balance, "equity": acc.Equity},
			Time:    time.Now(),
		})
	}
	return next
}

func (h *Heartbeat) State() domain.ConnState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Heartbeat) Connected() bool {
	return h.State() == domain.ConnConnected
}

func (h *Heartbeat) Account() domain.AccountSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.account
}

func (h *Heartbeat) LastError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}
