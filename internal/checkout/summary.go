package checkout

import (
	"context"
	"fmt"

	"github.com/andreasstove999/storefront-go/internal/auth"
	"github.com/andreasstove999/storefront-go/internal/cart"
)

// Summary is a non-mutating preview of checkout validation: the same cart
// snapshot and stock comparison, with no writes anywhere.
type Summary struct {
	Items       []cart.SnapshotLine `json:"items"`
	TotalAmount float64             `json:"totalAmount"`
	ItemCount   int                 `json:"itemCount"`
	CanCheckout bool                `json:"canCheckout"`
	Errors      []string            `json:"errors,omitempty"`
}

func (e *Engine) Summary(ctx context.Context) (*Summary, error) {
	id, ok := auth.From(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	lines, err := e.carts.Snapshot(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	s := &Summary{Items: lines, CanCheckout: true}
	if len(lines) == 0 {
		s.CanCheckout = false
		s.Errors = append(s.Errors, ErrEmptyCart.Error())
		return s, nil
	}

	for _, l := range lines {
		s.TotalAmount += l.Subtotal()
		s.ItemCount += l.Quantity
	}
	for _, short := range shortLines(lines) {
		s.CanCheckout = false
		s.Errors = append(s.Errors, short.String())
	}
	return s, nil
}
