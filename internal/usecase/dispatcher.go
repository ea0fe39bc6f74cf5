package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// Dispatcher is the EventSink handed to engines. Events are queued and
// delivered to every notifier from a single goroutine.
type Dispatcher struct {
	queue   chan domain.Event
	logger  *zap.Logger
	dropped atomic.Int64

	mu        sync.RWMutex
	notifiers []domain.Notifier
}

func NewDispatcher(buffer int, logger *zap.Logger, notifiers ...domain.Notifier) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		queue:     make(chan domain.Event, buffer),
		logger:    logger,
		notifiers: notifiers,
	}
}

func (d *Dispatcher) Add(n domain.Notifier) {
	d.mu.Lock()
	d.notifiers = append(d.notifiers, n)
	d.mu.Unlock()
}

// Emit never blocks; events are dropped when the queue is full.
func (d *Dispatcher) Emit(e domain.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case d.queue <- e:
	default:
		d.dropped.Add(1)
		d.logger.Warn("Event queue full, dropping event", zap.String("kind", string(e.Kind)))
	}
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e domain.Event) {
	d.mu.RLock()
	notifiers := d.notifiers
	d.mu.RUnlock()

	for _, n := range notifiers {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		if err := n.Notify(nctx, e); err != nil {
			d.logger.Warn("Notifier failed",
				zap.String("notifier", n.Name()),
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
		cancel()
	}
}
