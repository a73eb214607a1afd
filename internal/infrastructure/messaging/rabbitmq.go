package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
)

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// dialFunc opens a connection and a channel with the queue declared.
type dialFunc func() (io.Closer, amqpChannel, error)

var errPublisherClosed = errors.New("publisher closed")

// RabbitPublisher publishes user events to a durable queue. A channel or
// connection closed by the broker is replaced on the next publish, so a
// broker restart costs the events sent while it is down and no more.
type RabbitPublisher struct {
	Queue string

	dial   dialFunc
	mu     sync.Mutex
	conn   io.Closer
	ch     amqpChannel
	closed bool
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	return newRabbitPublisher(queue, func() (io.Closer, amqpChannel, error) {
		return dialQueue(url, queue)
	})
}

func newRabbitPublisher(queue string, dial dialFunc) (*RabbitPublisher, error) {
	p := &RabbitPublisher{Queue: queue, dial: dial}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialQueue(url, queue string) (io.Closer, amqpChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	// Declare durable queue
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return conn, ch, nil
}

// channel returns an open channel, dialing again when the current one has
// been closed.
func (p *RabbitPublisher) channel() (amqpChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.release()
	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// discard drops ch if it is still the current channel.
func (p *RabbitPublisher) discard(ch amqpChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.release()
	}
}

// release closes the current channel and connection. Callers hold mu.
func (p *RabbitPublisher) release() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.release()
}

// PublishUserEvent publishes ev to the queue with the event type as message
// type. A publish that finds the channel closed is retried once on a fresh
// connection.
func (p *RabbitPublisher) PublishUserEvent(ctx context.Context, ev entity.UserEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		MessageId:    ev.UserID + ":" + ev.OccurredAt.Format(time.RFC3339Nano),
		Timestamp:    ev.OccurredAt,
		Body:         b,
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = p.publish(ctx, ch, msg)
	if !errors.Is(err, amqp.ErrClosed) {
		return err
	}

	p.discard(ch)
	if ch, err = p.channel(); err != nil {
		return err
	}
	return p.publish(ctx, ch, msg)
}

func (p *RabbitPublisher) publish(ctx context.Context, ch amqpChannel, msg amqp.Publishing) error {
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		msg,
	)
}
