package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeNewOrder = "new_order"
	DefaultTTL   = 10 * time.Second
)

type Notification struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	OrderID      string          `json:"orderId"`
	CustomerName string          `json:"customerName"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
	Read         bool            `json:"read"`
}

type RemoveReason string

const (
	ReasonExpired   RemoveReason = "expired"
	ReasonDismissed RemoveReason = "dismissed"
	ReasonRead      RemoveReason = "read"
	ReasonClosed    RemoveReason = "closed"
)

type DisplayConfig struct {
	TTL time.Duration
	// OnRemove, if set, is called once for every notification that leaves
	// the display, outside the display lock.
	OnRemove func(Notification, RemoveReason)
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Display holds the notifications currently shown to an admin. Each one
// leaves after TTL or when it is dismissed or marked read, whichever comes
// first; only that first action has an effect.
type Display struct {
	mu          sync.Mutex
	entries     map[string]*entry
	ttl         time.Duration
	onRemove    func(Notification, RemoveReason)
	watchers    map[int]func(Notification)
	nextWatch   int
	unsubscribe func()
	logger      *slog.Logger
}

// NewDisplay subscribes to relay. Orders published before this call are not shown.
func NewDisplay(relay *Relay, cfg DisplayConfig, logger *slog.Logger) *Display {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	d := &Display{
		entries:  make(map[string]*entry),
		watchers: make(map[int]func(Notification)),
		ttl:      cfg.TTL,
		onRemove: cfg.OnRemove,
		logger:   logger,
	}
	d.unsubscribe = relay.Subscribe(d.add)
	return d
}

func (d *Display) add(o NewOrder) {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	n := Notification{
		ID:           uuid.NewString(),
		Type:         TypeNewOrder,
		OrderID:      o.OrderID,
		CustomerName: o.CustomerName,
		Amount:       o.Amount,
		Timestamp:    ts,
	}

	d.mu.Lock()
	if d.entries == nil {
		d.mu.Unlock()
		return // closed
	}
	e := &entry{n: n}
	d.entries[n.ID] = e
	e.timer = time.AfterFunc(d.ttl, func() { d.remove(n.ID, ReasonExpired) })
	watchers := make([]func(Notification), 0, len(d.watchers))
	for _, fn := range d.watchers {
		watchers = append(watchers, fn)
	}
	d.mu.Unlock()

	d.logger.Info("admin notification shown", "notification_id", n.ID, "order_id", n.OrderID)
	for _, fn := range watchers {
		fn(n)
	}
}

// Watch calls fn with every notification shown from now on, outside the
// display lock. The returned func stops the calls and is safe to call twice.
func (d *Display) Watch(fn func(Notification)) func() {
	d.mu.Lock()
	id := d.nextWatch
	d.nextWatch++
	d.watchers[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, id)
			d.mu.Unlock()
		})
	}
}

func (d *Display) Watchers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.watchers)
}

// List returns the visible notifications, newest first.
func (d *Display) List() []Notification {
	d.mu.Lock()
	out := make([]Notification, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.n)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Dismiss removes the notification. It reports false when it is already gone.
func (d *Display) Dismiss(id string) bool {
	return d.remove(id, ReasonDismissed)
}

// MarkRead flags the notification as read, which also removes it.
func (d *Display) MarkRead(id string) bool {
	return d.remove(id, ReasonRead)
}

// Close unsubscribes from the relay and drops every pending notification.
func (d *Display) Close() {
	d.unsubscribe()

	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		e.timer.Stop()
		d.notifyRemoved(e.n, ReasonClosed)
	}
}

func (d *Display) remove(id string, reason RemoveReason) bool {
	d.mu.Lock()
	e, ok := d.entries[id]
	if ok {
		delete(d.entries, id)
		if reason != ReasonExpired {
			e.timer.Stop()
		}
		if reason == ReasonRead {
			e.n.Read = true
		}
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	d.logger.Debug("admin notification removed", "notification_id", id, "reason", string(reason))
	d.notifyRemoved(e.n, reason)
	return true
}

func (d *Display) notifyRemoved(n Notification, reason RemoveReason) {
	if d.onRemove != nil {
		d.onRemove(n, reason)
	}
}
