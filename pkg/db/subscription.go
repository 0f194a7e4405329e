package db

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once

	// mu is held for the duration of every callback
	mu      sync.Mutex
	stopped bool
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	})
}

// Subscribe registers a live listener on the collection. The callback runs
// on a background goroutine: first with the current set, then with the
// complete current set after every change by any writer. Callbacks never
// overlap.
//
// The returned func unsubscribes. Once it returns no further callback runs;
// it waits for an in-flight callback, so it must not be called from inside
// the callback itself.
func (c *Collection[T]) Subscribe(cb func([]T)) (func(), error) {
	if !c.live {
		return nil, fmt.Errorf("%s: %w", c.name, ErrSubscriptionUnsupported)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := c.backend.Watch(ctx, c.name)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", c.name, err)
	}

	sub := &subscription{cancel: cancel}

	deliver := func() {
		items, err := c.List(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Failed to refresh subscription",
					zap.String("collection", c.name),
					zap.Error(err))
			}
			return
		}

		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.stopped {
			return
		}
		cb(items)
	}

	go func() {
		deliver()
		for range changes {
			deliver()
		}
	}()

	c.logger.Debug("Subscribed to collection", zap.String("collection", c.name))
	return sub.stop, nil
}
