// Package service provides outbound integrations used by the HTTP layer.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/task-manager/internal/queue"
)

// ErrQueueFull is returned by Publish when the outbound buffer is full and
// the event was dropped.
var ErrQueueFull = errors.New("event queue full")

const (
	defaultBuffer      = 256
	defaultDialTimeout = 5 * time.Second
	sendTimeout        = 5 * time.Second
)

// Publisher sends task events to a durable RabbitMQ queue.  Publish only
// enqueues; a single Run loop delivers over one long-lived channel that is
// reopened after any broker error.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	events      chan queue.TaskEvent

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the given broker URL and queue.
// buffer bounds the number of events waiting for delivery; values below 1
// use the default.
func NewPublisher(url, queueName string, buffer int) *Publisher {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &Publisher{
		url:         url,
		queue:       queueName,
		dialTimeout: defaultDialTimeout,
		events:      make(chan queue.TaskEvent, buffer),
	}
}

// Publish enqueues ev without blocking.  When the buffer is full the event
// is dropped and ErrQueueFull returned.
func (p *Publisher) Publish(_ context.Context, ev queue.TaskEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, then closes the
// broker connection.  Events still queued at that point are dropped.
func (p *Publisher) Run(ctx context.Context) {
	defer p.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := p.Send(sctx, ev); err != nil {
				slog.Warn("task_event_publish_failed", "type", ev.Type, "task_id", ev.TaskID, "error", err)
			}
			cancel()
		}
	}
}

// Send delivers ev as a persistent JSON message, connecting first if
// needed.  Any failure drops the connection so the next call redials.
func (p *Publisher) Send(ctx context.Context, ev queue.TaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// channel returns the open channel, dialing and declaring the queue when
// there is none.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close drops the broker connection.  It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
