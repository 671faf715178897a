// Package notify publishes domain events to RabbitMQ. Publishing is best
// effort: callers log failures and carry on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventLedgerRecorded = "ledger.recorded"
	EventDailyReport    = "stats.daily"
	EventRoleReset      = "users.role_reset"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func NewEvent(typ string, payload any) Event {
	return Event{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

const defaultDialTimeout = 2 * time.Second

// AMQP keeps one connection and channel to the broker and reopens them after
// a failure. Dialing is bounded by DialTimeout and by the deadline of ctx.
type AMQP struct {
	url         string
	queue       string
	DialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQP(url, queue string) *AMQP {
	return &AMQP{
		url:         url,
		queue:       queue,
		DialTimeout: defaultDialTimeout,
	}
}

func (p *AMQP) dialTimeout(ctx context.Context) time.Duration {
	timeout := p.DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	return timeout
}

// channel returns the open channel, dialing when there is none. Callers hold p.mu.
func (p *AMQP) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	timeout := p.dialTimeout(ctx)
	if timeout <= 0 {
		return nil, ctx.Err()
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("amqp.DialConfig -> %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("conn.Channel -> %w", err)
	}

	if _, err = ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ch.QueueDeclare -> %w", err)
	}

	p.conn, p.ch = conn, ch

	return ch, nil
}

func (p *AMQP) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *AMQP) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("ch.PublishWithContext -> %w", err)
	}

	return nil
}

// Close releases the broker connection.
func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()

	return nil
}

// Log only writes events to the logger. Used when no broker is configured.
type Log struct{}

func (Log) Publish(_ context.Context, event Event) error {
	zap.L().Debug("event", zap.String("type", event.Type), zap.Any("payload", event.Payload))
	return nil
}

func New(url, queue string) Publisher {
	if url == "" {
		return Log{}
	}

	return NewAMQP(url, queue)
}
