package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/docstore/memstore"
)

func TestStores_FetchAllAndClose(t *testing.T) {
	database := db.New(memstore.New(), zap.NewNop(), "test")
	ctx := context.Background()
	_, _ = database.Donations.Create(ctx, donation("a"))
	_, _ = database.Locations.Create(ctx, db.DropoffLocation{Name: "Hub", Address: "1 Main", City: "Pune"})

	stores := NewStores(database, zap.NewNop())
	require.NoError(t, stores.FetchAll(ctx))

	assert.Equal(t, StateReady, stores.Donations.State())
	assert.Equal(t, StateReady, stores.Locations.State())
	assert.Len(t, stores.Donations.Snapshot(), 1)
	assert.Len(t, stores.Locations.Snapshot(), 1)

	_, err := stores.Events.SubscribeLive()
	require.NoError(t, err)
	stores.Close()
	assert.Equal(t, 0, stores.Events.LiveRefs())
}

func TestStores_SubscribeLive_TracksRemoteWrites(t *testing.T) {
	database := db.New(memstore.New(), zap.NewNop(), "test")
	ctx := context.Background()
	stores := NewStores(database, zap.NewNop())
	t.Cleanup(stores.Close)

	release, err := stores.SubscribeLive()
	require.NoError(t, err)

	assert.True(t, stores.Donations.Live())
	assert.True(t, stores.Volunteers.Live())
	assert.True(t, stores.Events.Live())
	assert.False(t, stores.Locations.Live())

	_, err = database.Donations.Create(ctx, donation("remote"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(stores.Donations.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	release()
	assert.False(t, stores.Donations.Live())
	assert.False(t, stores.Events.Live())
}

func TestStore_CurrentRefetchesWithoutLiveListener(t *testing.T) {
	database := db.New(memstore.New(), zap.NewNop(), "test")
	ctx := context.Background()
	stores := NewStores(database, zap.NewNop())
	require.NoError(t, stores.FetchAll(ctx))

	_, err := database.Locations.Create(ctx, db.DropoffLocation{Name: "Hub", Address: "1 Main", City: "Pune"})
	require.NoError(t, err)

	assert.Empty(t, stores.Locations.Snapshot())
	items, err := stores.Locations.Current(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
