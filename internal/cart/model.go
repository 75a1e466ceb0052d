package cart

import "time"

// Item is one staged cart line. Transient state only: checkout converts it
// into an order item and deletes it, it is never itself the record of a sale.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SnapshotLine is a cart line joined with its product as read at the start of
// a checkout attempt. Price and stock from this snapshot are the sole source
// of truth for that attempt; they are never re-read mid-sequence.
type SnapshotLine struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	SellerID    string  `json:"sellerId"`
	UnitPrice   float64 `json:"unitPrice"`
	Stock       int     `json:"stock"`
	Quantity    int     `json:"quantity"`
}

// Subtotal is unit price times quantity for this line.
func (l SnapshotLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
