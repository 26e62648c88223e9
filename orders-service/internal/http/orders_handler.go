package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/repository"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/views"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	defaultDays     = 30
	maxDays         = 366
)

type OrdersHandler struct {
	repo    repository.OrderRepository
	views   *views.Views
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(repo repository.OrderRepository, v *views.Views, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{repo: repo, views: v, timeout: timeout, logger: logger}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ordersapi.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order", "invalid order", err.Error())
		return
	}

	order, err := toDomainOrder(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order", "invalid order", err.Error())
		return
	}
	if err := h.repo.CreateOrder(ctx, order); err != nil {
		h.logger.ErrorContext(ctx, "failed to create order", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create order", "")
		return
	}

	// the OrderCreated event invalidates again on delivery; this keeps reads on
	// this instance consistent when the event is late or Kafka is off
	h.views.Invalidate(ctx)

	h.logger.InfoContext(ctx, "order created", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2))
	respondJSON(w, http.StatusCreated, convertOrder(order))
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.repo.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "order not found", "")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order", "order_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get order", "")
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// GET /api/orders?limit=&offset=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := queryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	offset := queryInt(r, "offset", 0, 0, 1<<31-1)

	list, err := views.Fetch(ctx, h.views, views.OrdersList, fmt.Sprintf("%d:%d", limit, offset),
		func(ctx context.Context) ([]ordersapi.Order, error) {
			orders, err := h.repo.ListOrders(ctx, limit, offset)
			if err != nil {
				return nil, err
			}
			out := make([]ordersapi.Order, 0, len(orders))
			for _, o := range orders {
				out = append(out, convertOrder(o))
			}
			return out, nil
		})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list orders", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders", "")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// PATCH /api/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status", string(req.Status))
		return
	}

	order, err := h.repo.UpdateStatus(ctx, id, req.Status)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found", "")
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", "status change not allowed", err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to update order status", "order_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update order", "")
		return
	}

	h.views.Invalidate(ctx)
	respondJSON(w, http.StatusOK, convertOrder(order))
}

// GET /api/orders/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := views.Fetch(ctx, h.views, views.OrdersStats, "all", h.repo.Stats)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load stats", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load stats", "")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GET /api/orders/analytics
func (h *OrdersHandler) StatusAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	analytics, err := views.Fetch(ctx, h.views, views.OrdersAnalytics, "by_status", h.repo.StatusAnalytics)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load analytics", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load analytics", "")
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

// GET /api/analytics/daily?days=
func (h *OrdersHandler) DailyAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	days := queryInt(r, "days", defaultDays, 1, maxDays)
	daily, err := views.Fetch(ctx, h.views, views.DailyAnalytics, strconv.Itoa(days),
		func(ctx context.Context) ([]domain.DailyAnalytics, error) {
			return h.repo.DailyAnalytics(ctx, days)
		})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load daily analytics", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load daily analytics", "")
		return
	}
	respondJSON(w, http.StatusOK, daily)
}

func toDomainOrder(req ordersapi.OrderRequest) (*domain.Order, error) {
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       price,
		})
	}
	return &domain.Order{
		ID:              uuid.New(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		DeliveryAddress: req.DeliveryAddress,
		TotalAmount:     total,
		Status:          domain.OrderStatusPending,
		Items:           items,
	}, nil
}

func convertOrder(o *domain.Order) ordersapi.Order {
	items := make([]ordersapi.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ordersapi.OrderItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
			ProductName: item.ProductName,
		})
	}
	return ordersapi.Order{
		ID:              o.ID.String(),
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail,
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID", "")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an integer query parameter, clamped to [min, max].
func queryInt(r *http.Request, key string, def, min, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
