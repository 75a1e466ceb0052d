package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one message body. A nil return acks the message; an
// error nacks it without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

func DialRabbit(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// StartConsumer binds a durable per-consumer queue to the events exchange for
// the given routing key and dispatches deliveries to the handler until the
// context is cancelled.
func StartConsumer(ctx context.Context, conn *amqp.Connection, consumerName, routingKey string, handler HandlerFunc, logger zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queue := serviceQueue(consumerName, routingKey)
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}

	msgs, err := ch.Consume(queue, consumerName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Str("queue", queue).Msg("stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn().Str("queue", queue).Msg("messages channel closed")
					return
				}

				if err := handler(ctx, msg.Body); err != nil {
					logger.Error().Err(err).Str("queue", queue).Msg("handle message")
					_ = msg.Nack(false, false)
					continue
				}
				_ = msg.Ack(false)
			}
		}
	}()

	return nil
}
