package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
)

// Publisher is the write side of the analytics events topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector forwards RequestEvents to Kafka from a background goroutine so
// request handling never waits on the broker.
type Collector struct {
	publisher Publisher
	eventCh   chan RequestEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a Collector with the given buffer size. m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan RequestEvent, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It drains buffered events once ctx is
// cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(context.WithoutCancel(ctx), event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event, dropping it when the buffer is full or the
// collector is closed.
func (c *Collector) Track(event RequestEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.drop(event, "collector closed")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop(event, "buffer full")
	}
}

// Close stops accepting events and waits for the publish loop to finish.
// Later Track calls are dropped. Close is idempotent.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drop(event RequestEvent, reason string) {
	if c.metrics != nil {
		c.metrics.EventsDroppedTotal.Inc()
	}
	c.logger.Warn("analytics event dropped", "type", event.Type, "reason", reason)
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event RequestEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{
		Key:   event.UserID,
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish analytics event", "type", event.Type, "error", err)
	}
}
