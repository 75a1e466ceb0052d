package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/storefront-go/internal/order"
)

const (
	OrderPlacedEventName    = "OrderPlaced"
	OrderPlacedEventVersion = 1
)

// OrderLine mirrors one order item in event payloads.
type OrderLine struct {
	ProductID string  `json:"productId"`
	SellerID  string  `json:"sellerId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// OrderPlacedPayload is the v1 payload schema for a placed order.
type OrderPlacedPayload struct {
	OrderID     string      `json:"orderId"`
	BuyerID     string      `json:"buyerId"`
	Items       []OrderLine `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	PlacedAt    time.Time   `json:"placedAt"`
}

type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

// BuildOrderPlacedEnvelope wraps an order into the enveloped v1 event.
func BuildOrderPlacedEnvelope(o *order.Order, seq int64, producer string) OrderPlacedEnvelope {
	items := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderLine{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return OrderPlacedEnvelope{
		EventName:     OrderPlacedEventName,
		EventVersion:  OrderPlacedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: o.ID,
		Producer:      producer,
		PartitionKey:  o.ID,
		Sequence:      seq,
		OccurredAt:    time.Now().UTC(),
		Payload: OrderPlacedPayload{
			OrderID:     o.ID,
			BuyerID:     o.BuyerID,
			Items:       items,
			TotalAmount: o.TotalAmount,
			PlacedAt:    o.CreatedAt,
		},
	}
}
