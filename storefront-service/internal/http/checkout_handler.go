package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/circuitbreaker"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/checkout"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/i18n"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/orderclient"
)

type OrderSubmitter interface {
	Submit(ctx context.Context, c domain.Cart, customer domain.Customer, lang string) (ordersapi.Order, error)
}

type CheckoutHandler struct {
	carts     *Carts
	submitter OrderSubmitter
	timeout   time.Duration
	logger    *slog.Logger
}

func NewCheckoutHandler(carts *Carts, s OrderSubmitter, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, submitter: s, timeout: timeout, logger: logger}
}

type CheckoutRequestDTO struct {
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerEmail   string `json:"customerEmail,omitempty"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	customer := domain.Customer{
		Name:    req.CustomerName,
		Phone:   req.CustomerPhone,
		Email:   req.CustomerEmail,
		Address: req.DeliveryAddress,
	}

	f := h.carts.Open(ctx, sessionID(r.Context()))
	order, err := h.submitter.Submit(ctx, f.Cart(), customer, i18n.FromRequest(r))
	if err != nil {
		h.handleSubmitError(w, err)
		return
	}

	f.ClearCart(ctx)
	respondJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) handleSubmitError(w http.ResponseWriter, err error) {
	var apiErr *orderclient.APIError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, domain.ErrInvalidCustomer):
		respondError(w, http.StatusBadRequest, "invalid_customer", err.Error())
	case errors.Is(err, circuitbreaker.ErrOpen):
		respondError(w, http.StatusServiceUnavailable, "orders_unavailable", "order service temporarily unavailable")
	case errors.As(err, &apiErr) && !apiErr.Temporary():
		respondErrorDetails(w, http.StatusUnprocessableEntity, "order_rejected", "order was rejected", apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "order service did not answer in time")
	default:
		respondError(w, http.StatusBadGateway, "order_failed", "failed to submit order")
	}
}
