package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the forwarder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  ordersapi.OrdersCreatedTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaForwarder republishes OrderCreated events to Kafka so the orders
// service can refresh its cached views. Handle only enqueues; Run does the
// writes, so a slow broker never holds up checkout.
type KafkaForwarder struct {
	writer       MessageWriter
	queue        chan OrderCreated
	writeTimeout time.Duration
	logger       *slog.Logger
}

func NewKafkaForwarder(w MessageWriter, buffer int, logger *slog.Logger) *KafkaForwarder {
	if buffer < 1 {
		buffer = 1
	}
	return &KafkaForwarder{
		writer:       w,
		queue:        make(chan OrderCreated, buffer),
		writeTimeout: 5 * time.Second,
		logger:       logger,
	}
}

// Handle is a Bus handler. When the queue is full the event is dropped and
// logged; the orders service cache then expires on its own TTL.
func (f *KafkaForwarder) Handle(ctx context.Context, e OrderCreated) {
	select {
	case f.queue <- e:
	default:
		f.logger.WarnContext(ctx, "order event queue full, dropping", "order_id", e.OrderID)
	}
}

// Run writes queued events until ctx is cancelled, then flushes what is left
// and closes the writer.
func (f *KafkaForwarder) Run(ctx context.Context) {
	defer func() {
		if err := f.writer.Close(); err != nil {
			f.logger.Error("failed to close kafka writer", "err", err)
		}
	}()
	for {
		select {
		case e := <-f.queue:
			f.forward(ctx, e)
		case <-ctx.Done():
			f.drain(ctx)
			return
		}
	}
}

func (f *KafkaForwarder) drain(ctx context.Context) {
	for {
		select {
		case e := <-f.queue:
			f.forward(ctx, e)
		default:
			return
		}
	}
}

func (f *KafkaForwarder) forward(ctx context.Context, e OrderCreated) {
	msg, err := toMessage(e)
	if err != nil {
		f.logger.Error("failed to encode order event", "order_id", e.OrderID, "err", err)
		return
	}

	// queued events still go out after shutdown starts
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.writeTimeout)
	defer cancel()
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.logger.Error("failed to publish order event", "order_id", e.OrderID, "err", err)
		return
	}
	f.logger.Info("order event published", "order_id", e.OrderID, "topic", ordersapi.OrdersCreatedTopic)
}

func toMessage(e OrderCreated) (kafka.Message, error) {
	payload, err := json.Marshal(ordersapi.OrderCreatedEvent{
		OrderID:      e.OrderID,
		CustomerName: e.CustomerName,
		Amount:       e.Amount.StringFixed(2),
		OccurredAt:   e.OccurredAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal order event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ordersapi.EventTypeOrderCreated)},
		},
	}, nil
}
