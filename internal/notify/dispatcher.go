// Package notify fans committed order events out to independent observers.
// Checkout and the order service only know the Dispatcher; which observers
// exist is decided once at startup.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kantin/internal/models"
)

// Observer reacts to order events. An error or panic from one observer is
// logged and never reaches the caller or the other observers.
type Observer interface {
	OnOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event models.OrderEvent) error

func (f ObserverFunc) OnOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return f(ctx, event)
}

type subscription struct {
	name     string
	observer Observer
}

// Dispatcher delivers events to every subscribed observer in subscription order.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []subscription
	log       *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher with no observers.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: log, now: time.Now}
}

// Subscribe registers o under name. The name only appears in logs.
func (d *Dispatcher) Subscribe(name string, o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, subscription{name: name, observer: o})
}

// Notify delivers one event about order to all observers. It returns once
// every observer has run.
func (d *Dispatcher) Notify(ctx context.Context, order models.Order, kind models.EventKind) {
	d.mu.RLock()
	subs := make([]subscription, len(d.observers))
	copy(subs, d.observers)
	d.mu.RUnlock()

	event := models.OrderEvent{Order: order, Kind: kind, OccurredAt: d.now()}
	for _, s := range subs {
		if err := d.deliver(ctx, s, event); err != nil {
			d.log.Error("observer failed",
				zap.String("observer", s.name),
				zap.String("order_id", order.ID),
				zap.String("event", string(kind)),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s subscription, event models.OrderEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.observer.OnOrderEvent(ctx, event)
}
