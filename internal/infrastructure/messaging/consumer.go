package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
)

// UserEventHandler processes one decoded event.
type UserEventHandler func(ctx context.Context, ev entity.UserEvent) error

// RabbitConsumer reads user events from a durable queue with manual acks.
type RabbitConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitConsumer(url, queue string, prefetch int) (*RabbitConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	// prefetch for fair dispatch between workers
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return &RabbitConsumer{conn: conn, ch: ch, Queue: queue}, nil
}

func (c *RabbitConsumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Consume hands every delivery to handle until ctx is cancelled. It returns
// an error when the broker closes the delivery channel.
func (c *RabbitConsumer) Consume(ctx context.Context, handle UserEventHandler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			ev, err := DecodeUserEvent(msg.Body)
			if err == nil {
				err = handle(ctx, ev)
			}
			ack, requeue := settle(err, msg.Redelivered)
			if ack {
				_ = msg.Ack(false)
			} else {
				_ = msg.Nack(false, requeue)
			}
		}
	}
}

var errMalformedEvent = errors.New("malformed user event")

// DecodeUserEvent parses a message body published by RabbitPublisher.
func DecodeUserEvent(body []byte) (entity.UserEvent, error) {
	var ev entity.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if ev.Type == "" || ev.UserID == "" {
		return ev, fmt.Errorf("%w: missing type or userId", errMalformedEvent)
	}
	return ev, nil
}

// settle decides the fate of a delivery. Malformed messages are dropped;
// a failed handler gets one redelivery.
func settle(err error, redelivered bool) (ack, requeue bool) {
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, errMalformedEvent):
		return false, false
	default:
		return false, !redelivered
	}
}
