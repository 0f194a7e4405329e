// Package changefeed publishes every successful accessor mutation to a
// message broker. Publishing is asynchronous and best effort: a full queue
// drops the event and a failed publish is logged, never retried.
package changefeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/metrics"
)

//go:generate mockgen -source ./changefeed.go -destination=./mocks/producer.go -package=mocks

// Event is the message published for one mutation
type Event struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Op         db.Op          `json:"op"`
	DocumentID string         `json:"documentId"`
	Fields     map[string]any `json:"fields,omitempty"`
	At         time.Time      `json:"at"`
	Source     string         `json:"source,omitempty"`
}

// RoutingKey is "<collection>.<op>", e.g. "donations.update"
func (e Event) RoutingKey() string {
	return e.Collection + "." + string(e.Op)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Producer delivers events to a broker
type Producer interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Fields never published
var redactedFields = map[string]bool{
	"passwordHash": true,
}

const publishTimeout = 5 * time.Second

// Options configure a Feed
type Options struct {
	Workers    int
	BufferSize int
	// Source identifies this application instance on every event
	Source string
}

// Feed queues mutations and publishes them from a pool of workers
type Feed struct {
	producer Producer
	logger   *zap.Logger
	workers  int
	source   string

	mu     sync.RWMutex
	closed bool
	events chan Event

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

var _ db.MutationObserver = (*Feed)(nil)

func New(producer Producer, logger *zap.Logger, opts Options) *Feed {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BufferSize < 1 {
		opts.BufferSize = 1
	}
	return &Feed{
		producer: producer,
		logger:   logger,
		workers:  opts.Workers,
		source:   opts.Source,
		events:   make(chan Event, opts.BufferSize),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (f *Feed) Start() {
	f.startOnce.Do(func() {
		f.logger.Info("Starting change feed", zap.Int("workers", f.workers))
		for i := 0; i < f.workers; i++ {
			f.wg.Add(1)
			go f.runWorker(i)
		}
	})
}

// ObserveMutation queues a mutation without blocking. Events arriving when
// the queue is full or the feed is closed are dropped.
func (f *Feed) ObserveMutation(m db.Mutation) {
	event := Event{
		ID:         uuid.NewString(),
		Collection: m.Collection,
		Op:         m.Op,
		DocumentID: m.ID,
		Fields:     redact(m.Fields),
		At:         m.At,
		Source:     f.source,
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}

	select {
	case f.events <- event:
	default:
		metrics.ChangeEventsDroppedTotal.Inc()
		f.logger.Warn("Change feed queue full, dropping event",
			zap.String("collection", event.Collection),
			zap.String("documentId", event.DocumentID))
	}
}

func (f *Feed) runWorker(id int) {
	defer f.wg.Done()

	for event := range f.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := f.producer.Publish(ctx, event)
		cancel()

		if err != nil {
			metrics.ChangeEventsPublishedTotal.WithLabelValues(event.Collection, "error").Inc()
			f.logger.Error("Failed to publish change event",
				zap.Int("worker", id),
				zap.String("routingKey", event.RoutingKey()),
				zap.String("documentId", event.DocumentID),
				zap.Error(err))
			continue
		}
		metrics.ChangeEventsPublishedTotal.WithLabelValues(event.Collection, "ok").Inc()
	}
}

// Close stops accepting events, waits for queued events to be published or
// ctx to end, and closes the producer
func (f *Feed) Close(ctx context.Context) error {
	var err error
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		close(f.events)
		f.mu.Unlock()

		f.Start()
		done := make(chan struct{})
		go func() {
			f.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			f.logger.Info("Change feed drained")
		case <-ctx.Done():
			f.logger.Warn("Change feed shutdown interrupted", zap.Int("pending", len(f.events)))
		}
		err = f.producer.Close()
	})
	return err
}

// Run starts the feed and closes it once ctx is done, allowing drainTimeout
// for queued events
func (f *Feed) Run(ctx context.Context, drainTimeout time.Duration) error {
	f.Start()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return f.Close(shutdownCtx)
}

func redact(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !redactedFields[k] {
			out[k] = v
		}
	}
	return out
}
