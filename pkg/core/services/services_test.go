package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/clients/gmailclient/mocks"
	"github.com/shivamksharma/devdonations/pkg/clients/sheetsclient"
	"github.com/shivamksharma/devdonations/pkg/core/status"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/docstore/memstore"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestServices(t *testing.T, opts ...Option) (*Services, *db.DB) {
	t.Helper()
	database := db.New(memstore.New(), zap.NewNop(), "test")
	stores := store.NewStores(database, zap.NewNop())
	t.Cleanup(stores.Close)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(stores, zap.NewNop(), opts...), database
}

func validDonation() db.Donation {
	return db.Donation{
		Donor: db.Donor{Name: "Ada", Email: "ada@example.org", Phone: "555-0100"},
		Items: []db.DonationItem{
			{Category: "Outerwear", Type: "Winter coat", Quantity: 2, Condition: "good"},
		},
	}
}

func validVolunteer() db.Volunteer {
	return db.Volunteer{Name: "Grace", Email: "grace@example.org", Phone: "555-0101"}
}

func TestSubmitDonation_CreatesPendingDonation(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	d := validDonation()
	d.Status = db.DonationDistributed
	d.AssignedVolunteer = "someone"

	id, err := svc.SubmitDonation(ctx, d)
	require.NoError(t, err)

	stored, err := database.Donations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.DonationPending, stored.Status)
	assert.Empty(t, stored.AssignedVolunteer)

	found, ok := svc.Stores().Donations.Find(id)
	require.True(t, ok)
	assert.Equal(t, "Ada", found.Donor.Name)
}

func TestSubmitDonation_ValidationError(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	d := validDonation()
	d.Donor.Email = "not-an-email"
	d.Items = nil

	_, err := svc.SubmitDonation(ctx, d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "donor.email")
	assert.Contains(t, verr.Fields, "items")

	all, err := database.Donations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitDonation_SendsReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	svc, _ := newTestServices(t, WithMailer(mailer))

	mailer.EXPECT().
		SendEmail("ada@example.org", "Thank you for your donation", gomock.Any()).
		Return(nil)

	_, err := svc.SubmitDonation(context.Background(), validDonation())
	require.NoError(t, err)
}

func TestSubmitDonation_ReceiptFailureIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	svc, _ := newTestServices(t, WithMailer(mailer))

	mailer.EXPECT().
		SendEmail(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("quota exceeded"))

	id, err := svc.SubmitDonation(context.Background(), validDonation())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestRenderReceipt(t *testing.T) {
	d := validDonation()
	d.ID = "don-1"
	d.PickupRequested = true

	subject, body := RenderReceipt(d)
	assert.Equal(t, "Thank you for your donation", subject)
	assert.Contains(t, body, "Hi Ada")
	assert.Contains(t, body, "2 x Winter coat (Outerwear), good condition")
	assert.Contains(t, body, "Total items: 2")
	assert.Contains(t, body, "pickup")
	assert.Contains(t, body, "Reference: don-1")
}

func TestRegisterVolunteer_ForcesPending(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	v := validVolunteer()
	v.Status = db.VolunteerActive
	v.CompletedTasks = 40

	id, err := svc.RegisterVolunteer(ctx, v)
	require.NoError(t, err)

	stored, err := database.Volunteers.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.VolunteerPending, stored.Status)
	assert.Equal(t, 0, stored.CompletedTasks)
}

func TestCreateEvent_RejectsInvalidRecurrence(t *testing.T) {
	svc, _ := newTestServices(t)

	e := db.Event{
		Title:      "Saturday collection",
		Type:       db.EventCollection,
		StartDate:  testNow,
		EndDate:    testNow.Add(2 * time.Hour),
		Location:   "Community hall",
		Recurrence: "FREQ=SOMETIMES",
	}

	_, err := svc.CreateEvent(context.Background(), e)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "recurrence")

	e.Recurrence = "FREQ=WEEKLY;BYDAY=SA"
	_, err = svc.CreateEvent(context.Background(), e)
	assert.NoError(t, err)
}

func TestCreateEvent_EndBeforeStart(t *testing.T) {
	svc, _ := newTestServices(t)

	_, err := svc.CreateEvent(context.Background(), db.Event{
		Title:     "Backwards",
		Type:      db.EventAwareness,
		StartDate: testNow,
		EndDate:   testNow.Add(-time.Hour),
		Location:  "Online",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "endDate")
}

func TestChangeStatus_FollowsGraph(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)

	err = svc.ChangeStatus(ctx, db.DonationsCollection, id, "distributed")
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))

	require.NoError(t, svc.ChangeStatus(ctx, db.DonationsCollection, id, "confirmed"))
	require.NoError(t, svc.ChangeStatus(ctx, db.DonationsCollection, id, "confirmed"))

	stored, err := database.Donations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.DonationConfirmed, stored.Status)

	found, _ := svc.Stores().Donations.Find(id)
	assert.Equal(t, db.DonationConfirmed, found.Status)
}

func TestChangeStatus_FetchesWhenNotInSnapshot(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := database.Volunteers.Create(ctx, validVolunteer())
	require.NoError(t, err)

	require.NoError(t, svc.ChangeStatus(ctx, db.VolunteersCollection, id, "approved"))

	stored, err := database.Volunteers.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.VolunteerApproved, stored.Status)
}

func TestChangeStatus_ChecksStoredStatus(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)
	// another writer cancels the donation behind the store's back
	require.NoError(t, database.Donations.Update(ctx, id, db.Fields{"status": db.DonationCancelled}))

	err = svc.ChangeStatus(ctx, db.DonationsCollection, id, "confirmed")
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))

	stored, err := database.Donations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.DonationCancelled, stored.Status)
}

func TestPublishPost_ChecksStoredStatus(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := svc.CreatePost(ctx, db.BlogPost{Title: "Coat drive recap"})
	require.NoError(t, err)
	require.NoError(t, database.BlogPosts.Update(ctx, id, db.Fields{"status": db.PostArchived}))

	err = svc.PublishPost(ctx, id)
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))
}

func TestAssignVolunteer_ChecksStoredStatus(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	donationID, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)
	volunteerID, err := svc.RegisterVolunteer(ctx, validVolunteer())
	require.NoError(t, err)
	require.NoError(t, svc.ChangeStatus(ctx, db.VolunteersCollection, volunteerID, "approved"))
	require.NoError(t, database.Volunteers.Update(ctx, volunteerID, db.Fields{"status": db.VolunteerInactive}))

	err = svc.AssignVolunteer(ctx, donationID, volunteerID)
	assert.True(t, errors.Is(err, ErrVolunteerUnavailable))
}

func TestChangeStatus_Errors(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	err := svc.ChangeStatus(ctx, db.LocationsCollection, "x", "open")
	assert.True(t, errors.Is(err, ErrUnknownCollection))

	err = svc.ChangeStatus(ctx, db.EventsCollection, "missing", "published")
	assert.True(t, errors.Is(err, db.ErrNotFound))

	id, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)
	err = svc.ChangeStatus(ctx, db.DonationsCollection, id, "lost")
	assert.True(t, errors.Is(err, status.ErrUnknownStatus))
}

func TestAssignVolunteer(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	donationID, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)
	volunteerID, err := svc.RegisterVolunteer(ctx, validVolunteer())
	require.NoError(t, err)

	err = svc.AssignVolunteer(ctx, donationID, volunteerID)
	assert.True(t, errors.Is(err, ErrVolunteerUnavailable))

	require.NoError(t, svc.ChangeStatus(ctx, db.VolunteersCollection, volunteerID, "approved"))
	require.NoError(t, svc.AssignVolunteer(ctx, donationID, volunteerID))

	stored, err := database.Donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, volunteerID, stored.AssignedVolunteer)

	require.NoError(t, svc.UnassignVolunteer(ctx, donationID))
	stored, err = database.Donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedVolunteer)
}

func TestAssignVolunteer_Missing(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	donationID, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)

	err = svc.AssignVolunteer(ctx, donationID, "nobody")
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestRemoveVolunteer_ClearsAssignments(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	volunteerID, err := database.Volunteers.Create(ctx, db.Volunteer{
		Name: "Grace", Email: "grace@example.org", Phone: "555", Status: db.VolunteerActive,
	})
	require.NoError(t, err)

	var assigned []string
	for i := 0; i < 2; i++ {
		d := validDonation()
		d.AssignedVolunteer = volunteerID
		id, err := database.Donations.Create(ctx, d)
		require.NoError(t, err)
		assigned = append(assigned, id)
	}
	otherID, err := database.Donations.Create(ctx, validDonation())
	require.NoError(t, err)

	cleared, err := svc.RemoveVolunteer(ctx, volunteerID)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	for _, id := range append(assigned, otherID) {
		d, err := database.Donations.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, d.AssignedVolunteer)
	}

	_, err = database.Volunteers.Get(ctx, volunteerID)
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestDelete_VolunteerCascades(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	volunteerID, err := database.Volunteers.Create(ctx, validVolunteer())
	require.NoError(t, err)
	d := validDonation()
	d.AssignedVolunteer = volunteerID
	donationID, err := database.Donations.Create(ctx, d)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, db.VolunteersCollection, volunteerID))

	stored, err := database.Donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedVolunteer)
}

func TestDelete_UnknownCollection(t *testing.T) {
	svc, _ := newTestServices(t)
	err := svc.Delete(context.Background(), "users", "x")
	assert.True(t, errors.Is(err, ErrUnknownCollection))
}

func TestUpdate_RejectsStatus(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := svc.SubmitDonation(ctx, validDonation())
	require.NoError(t, err)

	err = svc.Update(ctx, db.DonationsCollection, id, db.Fields{"status": "distributed"})
	assert.True(t, errors.Is(err, ErrStatusNotPatchable))

	require.NoError(t, svc.Update(ctx, db.DonationsCollection, id, db.Fields{"notes": "fragile"}))
	stored, err := database.Donations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fragile", stored.Notes)
	assert.Equal(t, db.DonationPending, stored.Status)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "coats-for-kids-2025", Slugify("  Coats for Kids: 2025! "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestCreatePost_SlugUnique(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	id, err := svc.CreatePost(ctx, db.BlogPost{Title: "Hello World"})
	require.NoError(t, err)

	post, ok := svc.Stores().BlogPosts.Find(id)
	require.True(t, ok)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, db.PostDraft, post.Status)

	_, err = svc.CreatePost(ctx, db.BlogPost{Title: "Hello, world"})
	assert.True(t, errors.Is(err, ErrSlugTaken))

	otherID, err := svc.CreatePost(ctx, db.BlogPost{Title: "Second"})
	require.NoError(t, err)
	err = svc.UpdatePost(ctx, otherID, db.Fields{"slug": "hello-world"})
	assert.True(t, errors.Is(err, ErrSlugTaken))
	assert.NoError(t, svc.UpdatePost(ctx, id, db.Fields{"slug": "hello-world", "title": "Hello World!"}))
}

func TestPublishPost_SetsPublishedAtOnce(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	id, err := svc.CreatePost(ctx, db.BlogPost{Title: "Launch"})
	require.NoError(t, err)

	require.NoError(t, svc.PublishPost(ctx, id))
	post, err := database.BlogPosts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.PostPublished, post.Status)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(testNow))

	require.NoError(t, svc.ChangeStatus(ctx, db.BlogPostsCollection, id, "draft"))
	svc.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	require.NoError(t, svc.ChangeStatus(ctx, db.BlogPostsCollection, id, "published"))

	post, err = database.BlogPosts.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, post.PublishedAt.Equal(testNow))
}

func TestChangeStatus_ArchivedPostCannotPublish(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	id, err := svc.CreatePost(ctx, db.BlogPost{Title: "Old news"})
	require.NoError(t, err)
	require.NoError(t, svc.ChangeStatus(ctx, db.BlogPostsCollection, id, "archived"))

	err = svc.PublishPost(ctx, id)
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))
}

type fakeStorage struct {
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (f *fakeStorage) UploadImage(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (string, string, error) {
	if f.uploadErr != nil {
		return "", "", f.uploadErr
	}
	data, _ := io.ReadAll(reader)
	key := "images/" + filename
	f.uploaded = append(f.uploaded, string(data))
	return key, "http://media.local/bucket/" + key, nil
}

func (f *fakeStorage) DeleteImage(ctx context.Context, imageURL string) error {
	f.deleted = append(f.deleted, imageURL)
	return nil
}

func TestUploadFeaturedImage(t *testing.T) {
	media := &fakeStorage{}
	svc, database := newTestServices(t, WithMedia(media))
	ctx := context.Background()

	id, err := svc.CreatePost(ctx, db.BlogPost{Title: "Pictures", FeaturedImage: "http://media.local/bucket/images/old.png"})
	require.NoError(t, err)

	url, err := svc.UploadFeaturedImage(ctx, id, bytes.NewReader([]byte("png")), "new.png", "image/png", 3)
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/bucket/images/new.png", url)
	assert.Equal(t, []string{"png"}, media.uploaded)
	assert.Equal(t, []string{"http://media.local/bucket/images/old.png"}, media.deleted)

	post, err := database.BlogPosts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, url, post.FeaturedImage)
}

func TestUploadFeaturedImage_Disabled(t *testing.T) {
	svc, _ := newTestServices(t)
	_, err := svc.UploadFeaturedImage(context.Background(), "x", bytes.NewReader(nil), "a.png", "image/png", 0)
	assert.True(t, errors.Is(err, ErrMediaDisabled))
}

type fakePublisher struct {
	spreadsheetID string
	report        *sheetsclient.StatsReport
}

func (f *fakePublisher) PublishStats(spreadsheetID string, report *sheetsclient.StatsReport) (string, error) {
	f.spreadsheetID = spreadsheetID
	f.report = report
	return report.TabTitle(), nil
}

func TestDashboardAndExportStats(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	_, err := database.Donations.Create(ctx, validDonation())
	require.NoError(t, err)
	_, err = database.Locations.Create(ctx, db.DropoffLocation{Name: "Hub", Address: "1 Main", City: "Pune"})
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.TotalDonations)
	assert.Equal(t, 2, dashboard.TotalItems)
	assert.Equal(t, 1, dashboard.Locations)

	publisher := &fakePublisher{}
	tab, err := svc.ExportStats(ctx, publisher, "sheet-id")
	require.NoError(t, err)
	assert.Equal(t, "Stats Tue Jun 10 2025", tab)
	assert.Equal(t, "sheet-id", publisher.spreadsheetID)
	require.NotNil(t, publisher.report)
	assert.Equal(t, "Totals", publisher.report.Sections[0].Title)
	assert.Equal(t, []interface{}{"Donations", 1}, publisher.report.Sections[0].Rows[0])
}

func TestAnalytics_CountsPageViews(t *testing.T) {
	svc, database := newTestServices(t)
	ctx := context.Background()

	_, err := database.Analytics.TrackPageView(ctx, "/donate", nil)
	require.NoError(t, err)
	_, err = database.Analytics.TrackPageView(ctx, "/donate", nil)
	require.NoError(t, err)
	_, err = database.Analytics.TrackPageView(ctx, "/blog", nil)
	require.NoError(t, err)

	summary, err := svc.Analytics(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalViews)
	require.NotEmpty(t, summary.ByPath)
	assert.Equal(t, "/donate", summary.ByPath[0].Path)
}
