package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/metrics"
)

// SubscribeLive keeps the snapshot in sync with the remote collection until
// the returned release func is called. Consumers share one accessor listener:
// it is opened by the first consumer and closed when the last one releases.
// Calling release more than once has no further effect.
func (s *Store[T]) SubscribeLive() (func(), error) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if s.liveRefs == 0 {
		stop, err := s.accessor.Subscribe(s.replace)
		if err != nil {
			metrics.StoreOperationErrorsTotal.WithLabelValues(s.name, "subscribe").Inc()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", s.name, err)
		}
		s.liveStop = stop
		s.logger.Debug("Opened live listener")
	}
	s.liveRefs++
	metrics.StoreLiveListeners.WithLabelValues(s.name).Set(float64(s.liveRefs))

	var once sync.Once
	return func() {
		once.Do(s.releaseLive)
	}, nil
}

// Live reports whether a live listener is open
func (s *Store[T]) Live() bool {
	return s.LiveRefs() > 0
}

// LiveRefs returns the number of consumers holding a live subscription
func (s *Store[T]) LiveRefs() int {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return s.liveRefs
}

func (s *Store[T]) releaseLive() {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if s.liveRefs == 0 {
		return
	}
	s.liveRefs--
	metrics.StoreLiveListeners.WithLabelValues(s.name).Set(float64(s.liveRefs))

	if s.liveRefs == 0 && s.liveStop != nil {
		s.liveStop()
		s.liveStop = nil
		s.logger.Debug("Closed live listener")
	}
}

// Close tears down the live listener regardless of outstanding consumers
func (s *Store[T]) Close() {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if s.liveStop != nil {
		s.liveStop()
		s.liveStop = nil
		s.logger.Debug("Closed live listener on shutdown", zap.Int("consumers", s.liveRefs))
	}
	s.liveRefs = 0
	metrics.StoreLiveListeners.WithLabelValues(s.name).Set(0)
}
