package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/storefront-go/internal/auth"
	"github.com/andreasstove999/storefront-go/internal/cart"
	"github.com/andreasstove999/storefront-go/internal/order"
)

// CartStore is the slice of the cart repository the engine needs.
type CartStore interface {
	Snapshot(ctx context.Context, userID string) ([]cart.SnapshotLine, error)
	Clear(ctx context.Context, userID string) error
}

// OrderStore places orders atomically and reads them back for the
// confirmation payload.
type OrderStore interface {
	Place(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

// CatalogCache invalidates cached product state after stock changes.
type CatalogCache interface {
	InvalidateProduct(ctx context.Context, productID string) error
	InvalidateListings(ctx context.Context) error
}

// EventPublisher announces placed orders so background consumers (cart
// reconciliation, seller notification) can react.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *order.Order) error
}

// Input is the optional checkout metadata supplied by the buyer. The buyer
// identity itself is resolved from the session context, never passed in.
type Input struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

// Result is the outcome of a successful checkout. Warnings record post-commit
// degradations that did not affect the placed order.
type Result struct {
	Order    *order.Order `json:"order"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// Engine converts a buyer's cart into a persisted order.
//
// Validation (identity, empty cart, stock, total) happens against a single
// cart snapshot. The mutation (order + items + stock decrement) is one
// transaction in OrderStore.Place: it either fully commits or leaves nothing
// behind. Everything after that commit (cart clear, cache invalidation,
// detail re-fetch) degrades to warnings, because a buyer who has an order
// row must never be told the checkout failed.
type Engine struct {
	carts  CartStore
	orders OrderStore
	cache  CatalogCache
	events EventPublisher
	logger zerolog.Logger
}

func NewEngine(carts CartStore, orders OrderStore, cache CatalogCache, events EventPublisher, logger zerolog.Logger) *Engine {
	return &Engine{carts: carts, orders: orders, cache: cache, events: events, logger: logger}
}

func (e *Engine) Checkout(ctx context.Context, in Input) (*Result, error) {
	id, ok := auth.From(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	lines, err := e.carts.Snapshot(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if short := shortLines(lines); len(short) > 0 {
		return nil, &InsufficientStockError{Lines: short}
	}

	o := buildOrder(id.UserID, in, lines)

	if err := e.orders.Place(ctx, o); err != nil {
		var conflict *order.StockConflictError
		switch {
		case errors.As(err, &conflict):
			// A concurrent checkout won the race for stock between the
			// snapshot read and the row locks. Nothing was persisted.
			return nil, &InsufficientStockError{Lines: shortagesToLines(conflict.Shortages)}
		case errors.Is(err, order.ErrItemInsert):
			return nil, fmt.Errorf("%w: %v", ErrOrderItemCreationFailed, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}
	}

	res := &Result{Order: o}
	e.afterCommit(ctx, id.UserID, o, res)
	return res, nil
}

// afterCommit runs the non-fatal tail of the sequence. Failures are logged
// and surfaced as warnings only.
func (e *Engine) afterCommit(ctx context.Context, userID string, o *order.Order, res *Result) {
	if err := e.carts.Clear(ctx, userID); err != nil {
		e.logger.Warn().Err(err).Str("order_id", o.ID).Msg("cart clear failed after checkout")
		res.Warnings = append(res.Warnings, warn(WarnCartClearFailed,
			"cart could not be cleared: %v", err))
	}

	if err := e.events.PublishOrderPlaced(ctx, o); err != nil {
		// The reconciler cannot heal what it never hears about; still
		// non-fatal, the order stands.
		e.logger.Error().Err(err).Str("order_id", o.ID).Msg("publish OrderPlaced failed")
	}

	if failed := e.refreshCatalog(ctx, o); failed > 0 {
		res.Warnings = append(res.Warnings, warn(WarnPartialStockUpdate,
			"stock cache refresh failed for %d of %d products", failed, len(o.Items)))
	}

	detailed, err := e.orders.GetByID(ctx, o.ID)
	if err != nil {
		e.logger.Warn().Err(err).Str("order_id", o.ID).Msg("order detail re-fetch failed")
		res.Warnings = append(res.Warnings, warn(WarnOrderDetailDegraded,
			"order %s was placed but full detail could not be loaded", o.ID))
		return
	}
	res.Order = detailed
}

// refreshCatalog drops cached entries for every decremented product. The
// per-product invalidations are independent, so they run concurrently.
func (e *Engine) refreshCatalog(ctx context.Context, o *order.Order) int {
	g, gctx := errgroup.WithContext(ctx)
	failures := make([]error, len(o.Items))

	for i := range o.Items {
		i := i
		g.Go(func() error {
			failures[i] = e.cache.InvalidateProduct(gctx, o.Items[i].ProductID)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if err := e.cache.InvalidateListings(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("listing cache invalidation failed")
	}
	return failed
}

func shortLines(lines []cart.SnapshotLine) []ShortLine {
	var short []ShortLine
	for _, l := range lines {
		if l.Stock < l.Quantity {
			short = append(short, ShortLine{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Requested:   l.Quantity,
				Available:   l.Stock,
			})
		}
	}
	return short
}

func shortagesToLines(shortages []order.Shortage) []ShortLine {
	out := make([]ShortLine, 0, len(shortages))
	for _, s := range shortages {
		out = append(out, ShortLine{
			ProductID:   s.ProductID,
			ProductName: s.ProductName,
			Requested:   s.Requested,
			Available:   s.Available,
		})
	}
	return out
}

// buildOrder computes the total and line prices from the snapshot. Prices are
// never re-read after this point.
func buildOrder(buyerID string, in Input, lines []cart.SnapshotLine) *order.Order {
	o := &order.Order{
		BuyerID:         buyerID,
		Status:          order.StatusPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
	}

	for _, l := range lines {
		o.Items = append(o.Items, order.Item{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.Subtotal(),
			SellerID:    l.SellerID,
		})
		o.TotalAmount += l.Subtotal()
	}
	return o
}
