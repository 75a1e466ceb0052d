package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/storefront-go/internal/order"
	"github.com/andreasstove999/storefront-go/internal/sequence"
)

// Publisher emits enveloped events to the topic exchange. Sequences come from
// the sequence repository so consumers can deduplicate per partition key.
type Publisher struct {
	ch       *amqp.Channel
	seq      sequence.Repository
	producer string
}

func NewPublisher(conn *amqp.Connection, seq sequence.Repository, producer string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{ch: ch, seq: seq, producer: producer}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	seq, err := p.seq.NextSequence(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("sequence for order %s: %w", o.ID, err)
	}

	env := BuildOrderPlacedEnvelope(o, seq, p.producer)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, body)
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, payload OrderStatusChangedPayload) error {
	seq, err := p.seq.NextSequence(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("sequence for order %s: %w", payload.OrderID, err)
	}

	env := BuildOrderStatusChangedEnvelope(payload, seq, p.producer)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderStatusChanged: %w", err)
	}
	return p.publishJSON(ctx, OrderStatusChangedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
