// Package rabbitmq publishes outbox events to a RabbitMQ topic exchange with
// publisher confirms. The routing key is the event type.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

const (
	// DefaultConfirmTimeout bounds the wait for broker confirmations.
	DefaultConfirmTimeout = 5 * time.Second

	confirmChannelBuffer = 256
	contentTypeJSON      = "application/json"
)

var (
	ErrPublishNacked  = errors.New("message was nacked by broker")
	ErrConfirmTimeout = errors.New("confirmation timed out")
	ErrChannelClosed  = errors.New("confirm channel closed")
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements portsrepo.QueuePublisher.
type Publisher struct {
	mu             sync.Mutex
	ch             Channel
	conn           *amqp.Connection
	exchange       string
	confirms       chan amqp.Confirmation
	confirmTimeout time.Duration
}

var _ portsrepo.QueuePublisher = (*Publisher)(nil)

// Option configures a Publisher.
type Option func(*Publisher)

// WithConfirmTimeout sets how long a publish waits for the broker ack.
func WithConfirmTimeout(timeout time.Duration) Option {
	return func(p *Publisher) {
		if timeout > 0 {
			p.confirmTimeout = timeout
		}
	}
}

// Dial connects to url and returns a publisher on a fresh channel.
func Dial(url, exchange string, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	p, err := NewPublisher(ch, exchange, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the durable topic exchange and puts ch in confirm mode.
func NewPublisher(ch Channel, exchange string, opts ...Option) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("rabbitmq channel is required")
	}
	if exchange == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("channel does not support confirm mode: %w", err)
	}

	p := &Publisher{
		ch:             ch,
		exchange:       exchange,
		confirms:       ch.NotifyPublish(make(chan amqp.Confirmation, confirmChannelBuffer)),
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish sends one event and waits for its confirmation.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.PublishBatch(ctx, []domain.DomainEvent{event})
}

// PublishBatch sends every event, then waits for all confirmations. Any nack
// fails the whole batch; the outbox retries it and consumers dedupe on the
// message id.
func (p *Publisher) PublishBatch(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, event := range events {
		if err := p.ch.PublishWithContext(ctx, p.exchange, event.EventType, false, false, toMessage(event)); err != nil {
			return apperrors.NewExternalError(fmt.Sprintf("failed to publish event %s", event.EventID), err)
		}
	}

	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	var nacked int
	for range events {
		select {
		case confirm, ok := <-p.confirms:
			if !ok {
				return apperrors.NewExternalError("rabbitmq publish", ErrChannelClosed)
			}
			if !confirm.Ack {
				nacked++
			}
		case <-timer.C:
			return apperrors.NewExternalError("rabbitmq publish", ErrConfirmTimeout)
		case <-ctx.Done():
			return apperrors.NewExternalError("rabbitmq publish", ctx.Err())
		}
	}
	if nacked > 0 {
		return apperrors.NewExternalError(fmt.Sprintf("%d of %d events nacked", nacked, len(events)), ErrPublishNacked)
	}
	return nil
}

func toMessage(event domain.DomainEvent) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    event.OccurredAt,
		Type:         event.EventType,
		Headers: amqp.Table{
			"aggregate_id":   event.AggregateID,
			"aggregate_type": event.AggregateType,
			"retry_count":    int32(event.RetryCount),
		},
		Body: event.Payload,
	}
}

// Close closes the channel and, when the publisher dialed it, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
