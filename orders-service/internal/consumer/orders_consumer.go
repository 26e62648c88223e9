package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Invalidator drops cached read models.
type Invalidator interface {
	Invalidate(ctx context.Context, views ...string)
}

// Consumer refreshes the cached order views whenever the storefront reports
// a new order on the orders.created topic.
type Consumer struct {
	reader MessageReader
	views  Invalidator
	logger *slog.Logger
}

func NewKafkaReader(brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    ordersapi.OrdersCreatedTopic,
		GroupID:  "orders-service",
		MaxBytes: 10e6, // 10MB
	})
}

func NewConsumer(reader MessageReader, views Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{reader: reader, views: views, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", "err", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("error reading message", "err", err)
		return
	}

	if t := eventType(m); t != "" && t != ordersapi.EventTypeOrderCreated {
		c.logger.Debug("skipping event", "event_type", t)
		return
	}

	var event ordersapi.OrderCreatedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("error parsing message", "err", err, "offset", m.Offset)
		return
	}

	c.views.Invalidate(ctx)
	c.logger.Info("order views invalidated", "order_id", event.OrderID, "amount", event.Amount)
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
