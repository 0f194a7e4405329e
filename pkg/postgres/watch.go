package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	notifyChannel    = "docstore_changes"
	listenRetryDelay = 2 * time.Second
)

// listener holds one dedicated LISTEN connection and fans notifications
// out to per-collection watchers
type listener struct {
	db     *DB
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int
}

// Watch signals on the returned channel after every committed change to
// the collection. The channel is closed once ctx is done.
func (db *DB) Watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	if db.pool == nil {
		return nil, fmt.Errorf("watch requires a connection pool")
	}

	db.listenMu.Lock()
	if db.listener == nil {
		db.listener = startListener(db)
	}
	l := db.listener
	db.listenMu.Unlock()

	ch := make(chan struct{}, 1)
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	if l.watchers[collection] == nil {
		l.watchers[collection] = make(map[int]chan struct{})
	}
	l.watchers[collection][id] = ch
	l.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-l.done:
		}
		l.mu.Lock()
		if _, ok := l.watchers[collection][id]; ok {
			delete(l.watchers[collection], id)
			close(ch)
		}
		l.mu.Unlock()
	}()

	return ch, nil
}

func startListener(db *DB) *listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		db:       db,
		cancel:   cancel,
		done:     make(chan struct{}),
		watchers: make(map[string]map[int]chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *listener) stop() {
	l.cancel()
	<-l.done

	l.mu.Lock()
	for collection, chans := range l.watchers {
		for id, ch := range chans {
			close(ch)
			delete(chans, id)
		}
		delete(l.watchers, collection)
	}
	l.mu.Unlock()
}

func (l *listener) run(ctx context.Context) {
	defer close(l.done)

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.db.logger.Warn("Change listener disconnected, retrying",
			zap.Error(err),
			zap.Duration("delay", listenRetryDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

func (l *listener) listen(ctx context.Context) error {
	conn, err := l.db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}
	l.db.logger.Debug("Listening for document changes", zap.String("channel", notifyChannel))

	// Changes may have been missed while disconnected
	l.signalAll()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.signal(n.Payload)
	}
}

func (l *listener) signal(collection string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (l *listener) signalAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, chans := range l.watchers {
		for _, ch := range chans {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}
