package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/andreasstove999/storefront-go/internal/checkout"
)

// CheckoutService is the slice of the checkout engine the handler needs.
type CheckoutService interface {
	Checkout(ctx context.Context, in checkout.Input) (*checkout.Result, error)
	Summary(ctx context.Context) (*checkout.Summary, error)
}

type CheckoutHandler struct {
	engine CheckoutService
}

func NewCheckoutHandler(engine CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{engine: engine}
}

type checkoutResponse struct {
	Success  bool                 `json:"success"`
	Order    any                  `json:"order,omitempty"`
	Warnings []checkout.Warning   `json:"warnings,omitempty"`
	Error    string               `json:"error,omitempty"`
	Lines    []checkout.ShortLine `json:"insufficientStock,omitempty"`
}

func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.engine.Summary(ctx)
	if err != nil {
		if errors.Is(err, checkout.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build checkout summary")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in checkout.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.engine.Checkout(ctx, in)
	if err != nil {
		status, body := checkoutFailure(err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Success:  true,
		Order:    res.Order,
		Warnings: res.Warnings,
	})
}

// checkoutFailure maps the engine's fatal errors onto HTTP statuses. Every
// branch here means nothing was persisted and the cart is intact.
func checkoutFailure(err error) (int, checkoutResponse) {
	var short *checkout.InsufficientStockError
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		return http.StatusUnauthorized, checkoutResponse{Error: "authentication required"}
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, checkoutResponse{Error: "cart is empty"}
	case errors.As(err, &short):
		return http.StatusConflict, checkoutResponse{Error: short.Error(), Lines: short.Lines}
	case errors.Is(err, checkout.ErrOrderItemCreationFailed):
		return http.StatusInternalServerError, checkoutResponse{Error: "order item creation failed"}
	case errors.Is(err, checkout.ErrOrderCreationFailed):
		return http.StatusInternalServerError, checkoutResponse{Error: "order creation failed"}
	default:
		return http.StatusInternalServerError, checkoutResponse{Error: "checkout failed"}
	}
}
