// Package ordersapi holds the JSON contract of the order-creation endpoint
// shared by the storefront client and the orders service.
package ordersapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const CreateOrderPath = "/api/orders"

type OrderItem struct {
	ProductID   int64  `json:"productId"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	ProductName string `json:"productName"`
}

type OrderRequest struct {
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerEmail   string      `json:"customerEmail,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Items           []OrderItem `json:"items"`
	TotalAmount     string      `json:"totalAmount"`
}

// Order is the created order record returned by POST /api/orders.
type Order struct {
	ID              string      `json:"id"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerEmail   string      `json:"customerEmail,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Items           []OrderItem `json:"items"`
	TotalAmount     string      `json:"totalAmount"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var ErrInvalidOrder = errors.New("invalid order request")

// Validate checks the request shape and that totalAmount equals the sum of
// price × quantity over the items.
func (r OrderRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.CustomerName) == "":
		return fmt.Errorf("%w: customerName is required", ErrInvalidOrder)
	case strings.TrimSpace(r.CustomerPhone) == "":
		return fmt.Errorf("%w: customerPhone is required", ErrInvalidOrder)
	case strings.TrimSpace(r.DeliveryAddress) == "":
		return fmt.Errorf("%w: deliveryAddress is required", ErrInvalidOrder)
	case len(r.Items) == 0:
		return fmt.Errorf("%w: items must not be empty", ErrInvalidOrder)
	}

	sum, err := r.ItemsTotal()
	if err != nil {
		return err
	}
	total, err := decimal.NewFromString(r.TotalAmount)
	if err != nil {
		return fmt.Errorf("%w: totalAmount %q is not a number", ErrInvalidOrder, r.TotalAmount)
	}
	if !total.Equal(sum) {
		return fmt.Errorf("%w: totalAmount %s does not match items total %s",
			ErrInvalidOrder, total.StringFixed(2), sum.StringFixed(2))
	}
	return nil
}

// ItemsTotal sums price × quantity over the items.
func (r OrderRequest) ItemsTotal() (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, item := range r.Items {
		if item.ProductID <= 0 {
			return decimal.Zero, fmt.Errorf("%w: productId must be positive", ErrInvalidOrder)
		}
		if item.Quantity < 1 {
			return decimal.Zero, fmt.Errorf("%w: quantity for product %d must be at least 1", ErrInvalidOrder, item.ProductID)
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil || price.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: price %q for product %d", ErrInvalidOrder, item.Price, item.ProductID)
		}
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum, nil
}

// OrdersCreatedTopic carries one OrderCreatedEvent per accepted order.
const OrdersCreatedTopic = "orders.created"

const EventTypeOrderCreated = "OrderCreated"

// OrderCreatedEvent is the Kafka payload published after an order is accepted.
type OrderCreatedEvent struct {
	OrderID      string    `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	Amount       string    `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}
