package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 5 * time.Second

type Publisher struct {
	mu         sync.Mutex                  // one in-flight batch per channel
	ch         *amqp091.Channel            // AMQP channel for publishing messages
	confirms   <-chan amqp091.Confirmation // Channel to receive publish confirmations
	exchange   string                      // Exchange to publish messages to
	routingKey string                      // Default routing key for the messages
}

func NewPublisher(conn *amqp091.Connection, exchange, routingKey string) (*Publisher, error) {

	if conn == nil {
		return nil, errors.New("AMQP connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, err
	}

	confirms := ch.NotifyPublish(make(chan amqp091.Confirmation, 100))

	return &Publisher{
		ch:         ch,
		confirms:   confirms,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish sends one message under routingKey (or the default key when empty)
// and waits for the broker to confirm it.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.PublishBatch(ctx, routingKey, [][]byte{body})
}

func (p *Publisher) PublishBatch(ctx context.Context, routingKey string, bodies [][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if routingKey == "" {
		routingKey = p.routingKey
	}

	for _, body := range bodies {
		if err := p.publish(ctx, routingKey, body); err != nil {
			return err
		}
	}

	for range bodies {
		select {
		case confirm, ok := <-p.confirms:
			if !ok {
				return errors.New("confirmation channel closed")
			}
			if !confirm.Ack {
				return errors.New("message was nacked by the broker")
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmTimeout):
			return errors.New("publish confirms timeout")
		}
	}

	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {

	if p.ch == nil {
		return errors.New("AMQP channel is nil")
	}

	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
