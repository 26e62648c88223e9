// Package events carries in-process domain events between the checkout flow
// and the components that react to a new order.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreated is published once per successfully created order. It replaces
// the string-keyed cache invalidation of the order list, stats, analytics and
// daily analytics views.
type OrderCreated struct {
	OrderID      string
	CustomerName string
	Amount       decimal.Decimal
	OccurredAt   time.Time
}

type Handler func(ctx context.Context, e OrderCreated)

// Bus delivers OrderCreated synchronously to every current subscriber.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Handler
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{subs: make(map[uint64]Handler), logger: logger}
}

// Subscribe registers h and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

// Publish hands e to each subscriber in turn. With no subscribers it does nothing.
func (b *Bus) Publish(ctx context.Context, e OrderCreated) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.DebugContext(ctx, "order created event", "order_id", e.OrderID, "subscribers", len(handlers))
	for _, h := range handlers {
		h(ctx, e)
	}
}
