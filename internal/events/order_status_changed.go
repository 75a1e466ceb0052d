package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusChangedEventName    = "OrderStatusChanged"
	OrderStatusChangedEventVersion = 1
)

// OrderStatusChangedPayload is the v1 payload for seller-driven status moves.
type OrderStatusChangedPayload struct {
	OrderID   string    `json:"orderId"`
	BuyerID   string    `json:"buyerId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedAt time.Time `json:"changedAt"`
}

type OrderStatusChangedEnvelope = EventEnvelope[OrderStatusChangedPayload]

func BuildOrderStatusChangedEnvelope(p OrderStatusChangedPayload, seq int64, producer string) OrderStatusChangedEnvelope {
	if p.ChangedAt.IsZero() {
		p.ChangedAt = time.Now().UTC()
	}
	return OrderStatusChangedEnvelope{
		EventName:     OrderStatusChangedEventName,
		EventVersion:  OrderStatusChangedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: p.OrderID,
		Producer:      producer,
		PartitionKey:  p.OrderID,
		Sequence:      seq,
		OccurredAt:    time.Now().UTC(),
		Payload:       p,
	}
}
