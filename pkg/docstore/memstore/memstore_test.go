package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestInsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	doc, err := s.Insert(ctx, "donations", map[string]any{"donorName": "Asha"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	got, err := s.Get(ctx, "donations", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Data["donorName"])
}

func TestGet_NotFound(t *testing.T) {
	_, err := New().Get(context.Background(), "donations", "nope")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestQuery_NewestFirstWithFilterAndLimit(t *testing.T) {
	s := New(WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	_, _ = s.Insert(ctx, "blogPosts", map[string]any{"slug": "a", "status": "published"})
	_, _ = s.Insert(ctx, "blogPosts", map[string]any{"slug": "b", "status": "draft"})
	_, _ = s.Insert(ctx, "blogPosts", map[string]any{"slug": "c", "status": "published"})

	all, err := s.Query(ctx, "blogPosts", docstore.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Data["slug"])
	assert.Equal(t, "a", all[2].Data["slug"])

	published, err := s.Query(ctx, "blogPosts", docstore.Query{
		Filters: []docstore.Filter{{Field: "status", Value: "published"}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "c", published[0].Data["slug"])
}

func TestMerge_BumpsUpdatedAt(t *testing.T) {
	s := New(WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	doc, _ := s.Insert(ctx, "volunteers", map[string]any{"name": "Ravi", "status": "pending"})
	require.NoError(t, s.Merge(ctx, "volunteers", doc.ID, map[string]any{"status": "approved"}))

	got, _ := s.Get(ctx, "volunteers", doc.ID)
	assert.Equal(t, "approved", got.Data["status"])
	assert.Equal(t, "Ravi", got.Data["name"])
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, doc.CreatedAt, got.CreatedAt)
}

func TestMerge_Missing(t *testing.T) {
	err := New().Merge(context.Background(), "volunteers", "nope", map[string]any{"x": 1})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	doc, _ := s.Insert(ctx, "events", map[string]any{"tags": []any{"food"}})
	doc.Data["tags"].([]any)[0] = "changed"

	got, _ := s.Get(ctx, "events", doc.ID)
	assert.Equal(t, "food", got.Data["tags"].([]any)[0])
}

func TestDelete_MissingIsNoop(t *testing.T) {
	assert.NoError(t, New().Delete(context.Background(), "events", "nope"))
}

func TestWatch_SignalsAndCloses(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Watch(ctx, "donations")
	require.NoError(t, err)

	_, _ = s.Insert(context.Background(), "donations", map[string]any{"n": 1})
	_, _ = s.Insert(context.Background(), "donations", map[string]any{"n": 2})
	_, _ = s.Insert(context.Background(), "events", map[string]any{"n": 3})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}

	// Signals are coalesced so only one was pending
	select {
	case <-ch:
		t.Fatal("expected no further signal")
	default:
	}

	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected watch channel to close")
	}
}
