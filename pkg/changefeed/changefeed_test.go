package changefeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/changefeed"
	"github.com/shivamksharma/devdonations/pkg/changefeed/mocks"
	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/docstore/memstore"
)

func TestFeed_PublishesAccessorMutations(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)

	published := make(chan changefeed.Event, 4)
	producer.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e changefeed.Event) error {
			published <- e
			return nil
		}).Times(2)
	producer.EXPECT().Close().Return(nil)

	feed := changefeed.New(producer, zap.NewNop(), changefeed.Options{Workers: 1, BufferSize: 8, Source: "web-app"})
	feed.Start()

	donations := db.NewDonations(memstore.New(), zap.NewNop())
	donations.AddObserver(feed)

	ctx := context.Background()
	id, err := donations.Create(ctx, db.Donation{
		Donor: db.Donor{Name: "Asha", Email: "asha@example.com"},
		Items: []db.DonationItem{{Category: "men", Type: "shirt", Quantity: 3}},
	})
	require.NoError(t, err)
	require.NoError(t, donations.Update(ctx, id, db.Fields{"status": db.DonationConfirmed}))

	var events []changefeed.Event
	for i := 0; i < 2; i++ {
		select {
		case e := <-published:
			events = append(events, e)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change event")
		}
	}

	assert.Equal(t, "donations.create", events[0].RoutingKey())
	assert.Equal(t, id, events[0].DocumentID)
	assert.Equal(t, "web-app", events[0].Source)
	assert.Equal(t, "pending", events[0].Fields["status"])
	assert.NotEmpty(t, events[0].ID)

	assert.Equal(t, "donations.update", events[1].RoutingKey())
	assert.Equal(t, map[string]any{"status": "confirmed"}, events[1].Fields)

	require.NoError(t, feed.Close(context.Background()))
}

func TestFeed_RedactsPasswordHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)

	var got changefeed.Event
	producer.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e changefeed.Event) error {
			got = e
			return nil
		})
	producer.EXPECT().Close().Return(nil)

	feed := changefeed.New(producer, zap.NewNop(), changefeed.Options{Workers: 1, BufferSize: 1})
	feed.ObserveMutation(db.Mutation{
		Collection: db.UsersCollection,
		Op:         db.OpUpdate,
		ID:         "u1",
		Fields:     map[string]any{"role": "admin", "passwordHash": "$2a$10$abc"},
	})

	// Close drains the queue even when the workers were never started
	require.NoError(t, feed.Close(context.Background()))

	assert.Equal(t, map[string]any{"role": "admin"}, got.Fields)
}

func TestFeed_DropsWhenQueueFullAndAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	producer.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	producer.EXPECT().Close().Return(nil).Times(1)

	feed := changefeed.New(producer, zap.NewNop(), changefeed.Options{Workers: 1, BufferSize: 1})
	for i := 0; i < 3; i++ {
		feed.ObserveMutation(db.Mutation{Collection: "events", Op: db.OpDelete, ID: "e1"})
	}

	require.NoError(t, feed.Close(context.Background()))
	require.NoError(t, feed.Close(context.Background()))

	feed.ObserveMutation(db.Mutation{Collection: "events", Op: db.OpDelete, ID: "e2"})
}

func TestFeed_PublishFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	producer.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(assert.AnError).Times(1)
	producer.EXPECT().Close().Return(nil)

	feed := changefeed.New(producer, zap.NewNop(), changefeed.Options{Workers: 2, BufferSize: 4})
	feed.Start()
	feed.ObserveMutation(db.Mutation{Collection: "volunteers", Op: db.OpCreate, ID: "v1"})

	require.NoError(t, feed.Close(context.Background()))
}

func TestFeed_RunClosesOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	producer.EXPECT().Close().Return(nil)

	feed := changefeed.New(producer, zap.NewNop(), changefeed.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, time.Second) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewProducer(t *testing.T) {
	producer, err := changefeed.NewProducer(config.ChangeFeedConfig{}, "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &changefeed.LogProducer{}, producer)
	assert.NoError(t, producer.Publish(context.Background(), changefeed.Event{Collection: "events", Op: db.OpCreate}))

	producer, err = changefeed.NewProducer(config.ChangeFeedConfig{Producer: "kafka", Brokers: []string{"localhost:9092"}, Topic: "changes"}, "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &changefeed.KafkaProducer{}, producer)
	assert.NoError(t, producer.Close())

	_, err = changefeed.NewProducer(config.ChangeFeedConfig{Producer: "pigeon"}, "", zap.NewNop())
	assert.Error(t, err)
}
