package rabbitmq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-hub/internal/observability"
)

// ErrQueueFull is returned when the async publisher cannot accept more events.
var ErrQueueFull = errors.New("publish queue full")

// ErrClosed is returned by an AsyncPublisher after Close.
var ErrClosed = errors.New("publisher closed")

const publishTimeout = 5 * time.Second

type pendingPublish struct {
	routingKey string
	event      any
	headers    map[string]string
}

// AsyncPublisher queues publishes and sends them from a single background
// goroutine so callers never wait on the broker.
type AsyncPublisher struct {
	next   Publisher
	queue  chan pendingPublish
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncPublisher wraps next and starts its sender goroutine.
func NewAsyncPublisher(next Publisher, size int) *AsyncPublisher {
	if size <= 0 {
		size = 1024
	}
	p := &AsyncPublisher{
		next:  next,
		queue: make(chan pendingPublish, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return p.PublishWithHeaders(ctx, routingKey, event, nil)
}

// PublishWithHeaders enqueues the event and returns immediately.
func (p *AsyncPublisher) PublishWithHeaders(_ context.Context, routingKey string, event any, headers map[string]string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- pendingPublish{routingKey: routingKey, event: event, headers: headers}:
		return nil
	default:
		slog.Warn("publish queue full, dropping event", "routing_key", routingKey)
		return ErrQueueFull
	}
}

// Close drains queued events and closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.next.Close()
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for item := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.next.PublishWithHeaders(ctx, item.routingKey, item.event, item.headers); err != nil {
			slog.Warn("async publish failed", "routing_key", item.routingKey, "error", err)
			observability.IncAMQPPublishError()
		}
		cancel()
	}
}
