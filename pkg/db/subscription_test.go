package db

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotRecorder collects every set delivered to a subscription callback
type snapshotRecorder[T any] struct {
	mu   sync.Mutex
	sets [][]T
}

func (r *snapshotRecorder[T]) record(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, items)
}

func (r *snapshotRecorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

func (r *snapshotRecorder[T]) last() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sets) == 0 {
		return nil
	}
	return r.sets[len(r.sets)-1]
}

func TestSubscribe_UnsupportedCollections(t *testing.T) {
	d := newTestDB(t)

	_, err := d.Locations.Subscribe(func([]DropoffLocation) {})
	assert.ErrorIs(t, err, ErrSubscriptionUnsupported)

	_, err = d.BlogPosts.Subscribe(func([]BlogPost) {})
	assert.ErrorIs(t, err, ErrSubscriptionUnsupported)

	_, err = d.Analytics.Subscribe(func([]AnalyticsEvent) {})
	assert.ErrorIs(t, err, ErrSubscriptionUnsupported)
}

func TestSubscribe_DeliversInitialAndFullSetAfterChanges(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	existing, err := d.Donations.Create(ctx, sampleDonation("existing"))
	require.NoError(t, err)

	rec := &snapshotRecorder[Donation]{}
	unsubscribe, err := d.Donations.Subscribe(rec.record)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool {
		last := rec.last()
		return len(last) == 1 && last[0].ID == existing
	}, time.Second, 5*time.Millisecond)

	added, err := d.Donations.Create(ctx, sampleDonation("added"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, added, rec.last()[0].ID)

	require.NoError(t, d.Donations.Update(ctx, existing, Fields{"status": DonationConfirmed}))
	require.Eventually(t, func() bool {
		for _, don := range rec.last() {
			if don.ID == existing && don.Status == DonationConfirmed {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Donations.Delete(ctx, added))
	require.Eventually(t, func() bool {
		last := rec.last()
		return len(last) == 1 && last[0].ID == existing
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_NoCallbacksAfterUnsubscribe(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	var calls atomic.Int32
	unsubscribe, err := d.Volunteers.Subscribe(func([]Volunteer) {
		calls.Add(1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	after := calls.Load()

	for i := 0; i < 5; i++ {
		_, err := d.Volunteers.Create(ctx, Volunteer{Name: "V", Email: "v@example.com", Phone: "1"})
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, after, calls.Load())
}

func TestSubscribe_IndependentListeners(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	first := &snapshotRecorder[Event]{}
	second := &snapshotRecorder[Event]{}
	stopFirst, err := d.Events.Subscribe(first.record)
	require.NoError(t, err)
	stopSecond, err := d.Events.Subscribe(second.record)
	require.NoError(t, err)
	defer stopSecond()

	require.Eventually(t, func() bool { return first.count() >= 1 && second.count() >= 1 }, time.Second, 5*time.Millisecond)
	stopFirst()
	firstCount := first.count()

	_, err = d.Events.Create(ctx, Event{Title: "Drive", Type: EventCollection})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(second.last()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, firstCount, first.count())
}
