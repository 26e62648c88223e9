// Package notify delivers new-order notifications to the admin display.
package notify

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// NewOrder is what the checkout flow announces after an order is created.
type NewOrder struct {
	OrderID      string
	CustomerName string
	Amount       decimal.Decimal
	Timestamp    time.Time
}

type Subscriber func(NewOrder)

// Relay is an explicit publish/subscribe registry owned by the application
// root. Delivery is synchronous. Publishing with nobody subscribed does
// nothing and nothing is kept for later subscribers.
type Relay struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Subscriber
}

func NewRelay() *Relay {
	return &Relay{subs: make(map[uint64]Subscriber)}
}

// Subscribe registers fn and returns its unsubscribe func.
func (r *Relay) Subscribe(fn Subscriber) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
		})
	}
}

func (r *Relay) Publish(n NewOrder) {
	r.mu.RLock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(n)
	}
}

func (r *Relay) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
