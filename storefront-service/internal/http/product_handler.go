package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/catalog"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/i18n"
)

type ProductHandler struct {
	catalog catalog.Reader
	timeout time.Duration
	logger  *slog.Logger
}

func NewProductHandler(c catalog.Reader, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: c, timeout: timeout, logger: logger}
}

type ProductDTO struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        string  `json:"price"`
	SalePrice    *string `json:"salePrice,omitempty"`
	DisplayPrice string  `json:"displayPrice"`
	ImageURL     string  `json:"imageUrl"`
}

func toProductDTO(p domain.Product, lang string) ProductDTO {
	dto := ProductDTO{
		ID:           p.ID,
		Name:         p.LocalizedName(lang),
		Description:  p.LocalizedDescription(lang),
		Price:        p.Price.StringFixed(2),
		DisplayPrice: p.DisplayPrice().StringFixed(2),
		ImageURL:     p.ImageURL,
	}
	if p.SalePrice != nil {
		s := p.SalePrice.StringFixed(2)
		dto.SalePrice = &s
	}
	return dto
}

// GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list products", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load products")
		return
	}

	lang := i18n.FromRequest(r)
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p, lang))
	}
	w.Header().Set("Content-Language", lang)
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be a positive integer")
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get product", "product_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}

	lang := i18n.FromRequest(r)
	w.Header().Set("Content-Language", lang)
	respondJSON(w, http.StatusOK, toProductDTO(p, lang))
}
