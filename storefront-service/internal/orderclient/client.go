// Package orderclient calls the orders service to create orders.
package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/circuitbreaker"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the orders service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("orders service: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("orders service: %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is on the server side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Breaker trips after this many consecutive server-side failures.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker[ordersapi.Order]
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[ordersapi.Order](circuitbreaker.Settings{
			Name:                "orders-service",
			ConsecutiveFailures: cfg.BreakerFailures,
			OpenTimeout:         cfg.BreakerTimeout,
			IsSuccessful:        isHealthy,
		}, logger),
		logger: logger,
	}
}

// isHealthy counts rejected requests as successes for the breaker: a 4xx says
// the request was wrong, not that the orders service is down.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}

// CreateOrder posts req to the orders service once. No retry is attempted.
func (c *Client) CreateOrder(ctx context.Context, req ordersapi.OrderRequest) (ordersapi.Order, error) {
	order, err := c.breaker.Execute(func() (ordersapi.Order, error) {
		return c.post(ctx, req)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ordersapi.Order{}, fmt.Errorf("orders service unavailable: %w", err)
	}
	return order, err
}

func (c *Client) post(ctx context.Context, req ordersapi.OrderRequest) (ordersapi.Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ordersapi.Order{}, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersapi.CreateOrderPath, bytes.NewReader(body))
	if err != nil {
		return ordersapi.Order{}, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ordersapi.Order{}, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ordersapi.Order{}, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er ordersapi.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Code = er.Code
			apiErr.Message = er.Error
			if er.Details != "" {
				apiErr.Message += ": " + er.Details
			}
		}
		c.logger.WarnContext(ctx, "order rejected", "status", resp.StatusCode, "code", apiErr.Code)
		return ordersapi.Order{}, apiErr
	}

	var order ordersapi.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return ordersapi.Order{}, fmt.Errorf("decode order response: %w", err)
	}
	c.logger.InfoContext(ctx, "order created", "order_id", order.ID)
	return order, nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}
