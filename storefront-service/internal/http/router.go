package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type RouterConfig struct {
	RequestTimeout  time.Duration
	AdminToken      string
	// AllowedOrigins enables CORS with credentials for browser frontends
	// served from another origin. Empty disables CORS handling.
	AllowedOrigins  []string
	CheckoutLimiter *SessionLimiter
}

// NewRouter mounts the storefront API. The websocket feed is registered
// without the timeout middleware.
func NewRouter(cfg RouterConfig, products *ProductHandler, carts *CartHandler, checkout *CheckoutHandler, admin *AdminHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.Compress(5))

		r.Get("/products", products.ListProducts)
		r.Get("/products/{id}", products.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)
			r.Get("/cart", carts.GetCart)
			r.Delete("/cart", carts.ClearCart)
			r.Post("/cart/items", carts.AddItem)
			r.Patch("/cart/items/{product_id}", carts.UpdateQuantity)
			r.Delete("/cart/items/{product_id}", carts.RemoveItem)
			if cfg.CheckoutLimiter != nil {
				r.With(cfg.CheckoutLimiter.Limit).Post("/checkout", checkout.Checkout)
			} else {
				r.Post("/checkout", checkout.Checkout)
			}
		})
	})

	r.Route("/admin/notifications", func(r chi.Router) {
		r.Use(AdminTokenMiddleware(cfg.AdminToken))
		r.Get("/ws", admin.Feed)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Get("/", admin.ListNotifications)
			r.Post("/{id}/read", admin.MarkRead)
			r.Delete("/{id}", admin.Dismiss)
		})
	})

	if len(cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", AdminTokenHeader},
		AllowCredentials: true,
	}).Handler(r)
}
