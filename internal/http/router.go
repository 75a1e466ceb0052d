package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/storefront-go/internal/auth"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Users    *UserHandler
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
}

func NewRouter(h Handlers, tokens *auth.Tokens, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(auth.Middleware(tokens))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h.Users.Register)
		r.Post("/users/login", h.Users.Login)

		r.Get("/products", h.Products.List)
		r.Get("/products/{productId}", h.Products.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleSeller))
			r.Post("/products", h.Products.Create)
			r.Put("/products/{productId}", h.Products.Update)
			r.Delete("/products/{productId}", h.Products.Delete)
			r.Get("/seller/orders", h.Orders.ListForSeller)
			r.Post("/seller/orders/{orderId}/status", h.Orders.UpdateStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/cart/items", h.Cart.List)
			r.Post("/cart/items", h.Cart.AddItem)
			r.Put("/cart/items/{productId}", h.Cart.UpdateQuantity)
			r.Delete("/cart/items/{productId}", h.Cart.RemoveItem)
			r.Delete("/cart", h.Cart.Clear)

			r.Get("/checkout/summary", h.Checkout.Summary)
			r.Post("/checkout", h.Checkout.Checkout)

			r.Get("/orders", h.Orders.ListForBuyer)
			r.Get("/orders/{orderId}", h.Orders.Get)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
