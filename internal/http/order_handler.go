package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/storefront-go/internal/auth"
	"github.com/andreasstove999/storefront-go/internal/events"
	"github.com/andreasstove999/storefront-go/internal/order"
)

// StatusEventPublisher announces seller-driven status moves.
type StatusEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, payload events.OrderStatusChangedPayload) error
}

type OrderHandler struct {
	orders order.Repository
	events StatusEventPublisher
	logger zerolog.Logger
}

func NewOrderHandler(orders order.Repository, events StatusEventPublisher, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, events: events, logger: logger}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) ListForBuyer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)
	orders, err := h.orders.ListByBuyer(ctx, id.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandler) ListForSeller(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)
	orders, err := h.orders.ListBySeller(ctx, id.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Get returns an order to its buyer, or to a seller with items in it.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)
	o, err := h.orders.GetByID(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	if !canSeeOrder(id, o) {
		// Same response as a truly missing order, so buyers cannot probe
		// other buyers' order IDs.
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)
	orderID := chi.URLParam(r, "orderId")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	before, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	to := order.Status(req.Status)
	if err := h.orders.UpdateStatus(ctx, id.UserID, orderID, to); err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrBadTransition):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	if err := h.events.PublishOrderStatusChanged(ctx, events.OrderStatusChangedPayload{
		OrderID:   orderID,
		BuyerID:   before.BuyerID,
		OldStatus: string(before.Status),
		NewStatus: string(to),
	}); err != nil {
		h.logger.Error().Err(err).Str("order_id", orderID).Msg("publish OrderStatusChanged failed")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(to)})
}

func canSeeOrder(id auth.Identity, o *order.Order) bool {
	if o.BuyerID == id.UserID {
		return true
	}
	if id.Role == auth.RoleSeller {
		for _, it := range o.Items {
			if it.SellerID == id.UserID {
				return true
			}
		}
	}
	return false
}
