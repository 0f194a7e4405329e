package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDonationGraph(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"pending", "confirmed", true},
		{"pending", "cancelled", true},
		{"pending", "distributed", false},
		{"confirmed", "collected", true},
		{"collected", "distributed", true},
		{"distributed", "pending", false},
		{"cancelled", "pending", false},
		{"collected", "collected", true},
		{"pending", "lost", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, Donation.Can(tt.from, tt.to))
		})
	}
}

func TestVolunteerGraph(t *testing.T) {
	assert.True(t, Volunteer.Can("pending", "approved"))
	assert.True(t, Volunteer.Can("approved", "active"))
	assert.True(t, Volunteer.Can("inactive", "active"))
	assert.True(t, Volunteer.Can("rejected", "pending"))
	assert.False(t, Volunteer.Can("rejected", "active"))
	assert.False(t, Volunteer.Can("pending", "active"))
}

func TestEventAndPostGraphs(t *testing.T) {
	assert.True(t, Event.Can("draft", "published"))
	assert.True(t, Event.Can("published", "draft"))
	assert.True(t, Event.Can("ongoing", "completed"))
	assert.False(t, Event.Can("completed", "ongoing"))

	assert.True(t, BlogPost.Can("draft", "published"))
	assert.True(t, BlogPost.Can("archived", "draft"))
	assert.False(t, BlogPost.Can("archived", "published"))
}

func TestCheck_TransitionError(t *testing.T) {
	err := Donation.Check("distributed", "pending")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "donation", te.Entity)
	assert.Empty(t, te.Allowed)

	err = Donation.Check("pending", "shipped")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	assert.NoError(t, Donation.Check("pending", "confirmed"))
}

func TestNext_Sorted(t *testing.T) {
	assert.Equal(t, []string{"cancelled", "draft", "ongoing"}, Event.Next("published"))
}

func TestForCollection(t *testing.T) {
	g, ok := ForCollection("volunteers")
	require.True(t, ok)
	assert.Equal(t, "volunteer", g.Entity())

	_, ok = ForCollection("locations")
	assert.False(t, ok)
}
