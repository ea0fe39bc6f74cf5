package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventEngineStarted       EventKind = "engine_started"
	EventEngineStopped       EventKind = "engine_stopped"
	EventSignal              EventKind = "signal"
	EventOrderSubmitted      EventKind = "order_submitted"
	EventOrderFailed         EventKind = "order_failed"
	EventPositionOpened      EventKind = "position_opened"
	EventPositionClosed      EventKind = "position_closed"
	EventConnectionLost      EventKind = "connection_lost"
	EventConnectionRestored  EventKind = "connection_restored"
	EventDataUnavailable     EventKind = "data_unavailable"
	EventInsufficientHistory EventKind = "insufficient_history"
	EventStrategyError       EventKind = "strategy_error"
	EventLiquidation         EventKind = "liquidation"
	EventBacktestFinished    EventKind = "backtest_finished"
)

// Event is a domain fact emitted by the engine, heartbeat or simulator.
type Event struct {
	Kind    EventKind              `json:"kind"`
	Engine  string                 `json:"engine,omitempty"`
	Symbol  string                 `json:"symbol,omitempty"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Time    time.Time              `json:"time"`
}

// EventSink receives events from decision logic. Emit must not block.
type EventSink interface {
	Emit(e Event)
}

// Notifier delivers events to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, e Event) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}
