package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/cart"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/catalog"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/i18n"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/storage"
)

const maxQuantity = 99

// Carts opens the cart facade of a session.
type Carts struct {
	kv     storage.Storage
	logger *slog.Logger
}

func NewCarts(kv storage.Storage, logger *slog.Logger) *Carts {
	return &Carts{kv: kv, logger: logger}
}

func (c *Carts) Open(ctx context.Context, sessionID string) *cart.Facade {
	store := cart.NewStore(storage.Prefixed(c.kv, storage.SessionPrefix(sessionID)), c.logger.With("session_id", sessionID))
	return cart.Open(ctx, store)
}

type CartHandler struct {
	carts   *Carts
	catalog catalog.Reader
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(carts *Carts, c catalog.Reader, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, catalog: c, timeout: timeout, logger: logger}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Price     string  `json:"price"`
	SalePrice *string `json:"salePrice,omitempty"`
	Quantity  int     `json:"quantity"`
	LineTotal string  `json:"lineTotal"`
}

type CartDTO struct {
	Items []CartItemDTO `json:"items"`
	Total string        `json:"total"`
	Count int           `json:"count"`
}

func toCartDTO(c domain.Cart, lang string) CartDTO {
	dto := CartDTO{Items: make([]CartItemDTO, 0, len(c.Items)), Total: c.Total.StringFixed(2), Count: c.Count}
	for _, item := range c.Items {
		p := toProductDTO(item.Product, lang)
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID: item.Product.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			SalePrice: p.SalePrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return dto
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	f := h.carts.Open(r.Context(), sessionID(r.Context()))
	respondJSON(w, http.StatusOK, toCartDTO(f.Cart(), i18n.FromRequest(r)))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId must be positive")
		return
	}
	if req.Quantity < 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get product", "product_id", req.ProductID, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}

	f := h.carts.Open(ctx, sessionID(r.Context()))
	c := f.AddToCart(ctx, product, req.Quantity)
	respondJSON(w, http.StatusCreated, toCartDTO(c, i18n.FromRequest(r)))
}

// PATCH /api/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}
	if *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	f := h.carts.Open(ctx, sessionID(r.Context()))
	c := f.UpdateQuantity(ctx, productID, *req.Quantity)
	respondJSON(w, http.StatusOK, toCartDTO(c, i18n.FromRequest(r)))
}

// DELETE /api/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	f := h.carts.Open(ctx, sessionID(r.Context()))
	c := f.RemoveFromCart(ctx, productID)
	respondJSON(w, http.StatusOK, toCartDTO(c, i18n.FromRequest(r)))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f := h.carts.Open(ctx, sessionID(r.Context()))
	respondJSON(w, http.StatusOK, toCartDTO(f.ClearCart(ctx), i18n.FromRequest(r)))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return id, true
}
