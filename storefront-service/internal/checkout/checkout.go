// Package checkout turns a cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/events"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/notify"
	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderCreator creates an order on the orders service.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req ordersapi.OrderRequest) (ordersapi.Order, error)
}

type Submitter struct {
	orders OrderCreator
	bus    *events.Bus
	relay  *notify.Relay
	now    func() time.Time
	logger *slog.Logger
}

func NewSubmitter(orders OrderCreator, bus *events.Bus, relay *notify.Relay, logger *slog.Logger) *Submitter {
	return &Submitter{orders: orders, bus: bus, relay: relay, now: time.Now, logger: logger}
}

// Submit sends the cart as one order. On success it announces the order on
// the event bus and the notification relay. It never modifies the cart:
// clearing it after success is up to the caller. A failed call is returned
// as is and not retried.
func (s *Submitter) Submit(ctx context.Context, c domain.Cart, customer domain.Customer, lang string) (ordersapi.Order, error) {
	if c.IsEmpty() {
		return ordersapi.Order{}, ErrEmptyCart
	}
	if err := customer.Validate(); err != nil {
		return ordersapi.Order{}, err
	}

	req := BuildOrderRequest(c, customer, lang)
	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "order submission failed", "err", err, "items", len(req.Items))
		return ordersapi.Order{}, fmt.Errorf("submit order: %w", err)
	}

	amount := c.Total
	if a, err := decimal.NewFromString(order.TotalAmount); err == nil {
		amount = a
	}
	name := order.CustomerName
	if name == "" {
		name = customer.Name
	}
	at := s.now()

	s.bus.Publish(ctx, events.OrderCreated{
		OrderID:      order.ID,
		CustomerName: name,
		Amount:       amount,
		OccurredAt:   at,
	})
	s.relay.Publish(notify.NewOrder{
		OrderID:      order.ID,
		CustomerName: name,
		Amount:       amount,
		Timestamp:    at,
	})

	s.logger.InfoContext(ctx, "order submitted", "order_id", order.ID, "amount", amount.StringFixed(2))
	return order, nil
}

// BuildOrderRequest projects the cart into the order-creation payload. Prices
// are base prices with two decimals; names are localized when a translation
// for lang exists.
func BuildOrderRequest(c domain.Cart, customer domain.Customer, lang string) ordersapi.OrderRequest {
	items := make([]ordersapi.OrderItem, 0, len(c.Items))
	total := decimal.Zero
	for _, item := range c.Items {
		price := item.Product.UnitPrice()
		items = append(items, ordersapi.OrderItem{
			ProductID:   item.Product.ID,
			Quantity:    item.Quantity,
			Price:       price.StringFixed(2),
			ProductName: item.Product.LocalizedName(lang),
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return ordersapi.OrderRequest{
		CustomerName:    customer.Name,
		CustomerPhone:   customer.Phone,
		CustomerEmail:   customer.Email,
		DeliveryAddress: customer.Address,
		Items:           items,
		TotalAmount:     total.StringFixed(2),
	}
}
