package checkout

import (
	"errors"
	"fmt"
)

// Fatal failure kinds. Any of these means no order was persisted by the
// attempt and the cart is untouched, so the buyer can retry.
var (
	ErrUnauthenticated         = errors.New("no authenticated buyer")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrOrderCreationFailed     = errors.New("order creation failed")
	ErrOrderItemCreationFailed = errors.New("order item creation failed")
)

// ShortLine names one cart line that cannot be fulfilled.
type ShortLine struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func (l ShortLine) String() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		l.ProductName, l.Requested, l.Available)
}

// InsufficientStockError reports every cart line whose quantity exceeds the
// product's stock. Stock validation is exhaustive, so the buyer sees all
// offending lines at once.
type InsufficientStockError struct {
	Lines []ShortLine
}

func (e *InsufficientStockError) Error() string {
	if len(e.Lines) == 0 {
		return "insufficient stock"
	}
	msg := e.Lines[0].String()
	if len(e.Lines) > 1 {
		msg += fmt.Sprintf(" (and %d more lines)", len(e.Lines)-1)
	}
	return msg
}

// WarningCode identifies a non-fatal, post-commit degradation. Once the order
// row is committed these never flip the attempt back to failure; the
// reconciler heals what it can in the background.
type WarningCode string

const (
	// WarnCartClearFailed: the buyer's cart rows survived the order.
	WarnCartClearFailed WarningCode = "cart_clear_failed"
	// WarnPartialStockUpdate: cached stock bookkeeping lags the committed
	// decrement for some products.
	WarnPartialStockUpdate WarningCode = "partial_stock_update"
	// WarnOrderDetailDegraded: the confirmation payload lacks full order
	// detail because the re-fetch failed.
	WarnOrderDetailDegraded WarningCode = "order_detail_degraded"
)

type Warning struct {
	Code   WarningCode `json:"code"`
	Detail string      `json:"detail"`
}

func warn(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Detail: fmt.Sprintf(format, args...)}
}
