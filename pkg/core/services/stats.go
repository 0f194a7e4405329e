package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shivamksharma/devdonations/pkg/clients/sheetsclient"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/core/views"
	"github.com/shivamksharma/devdonations/pkg/db"
)

// StatsPublisher writes a stats report to a spreadsheet
type StatsPublisher interface {
	PublishStats(spreadsheetID string, report *sheetsclient.StatsReport) (string, error)
}

// ensureLoaded refreshes every store. Stores kept current by a live
// subscription are left alone.
func (s *Services) ensureLoaded(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loadIfNeeded(ctx, s.stores.Donations) })
	g.Go(func() error { return loadIfNeeded(ctx, s.stores.Volunteers) })
	g.Go(func() error { return loadIfNeeded(ctx, s.stores.Events) })
	g.Go(func() error { return loadIfNeeded(ctx, s.stores.Locations) })
	g.Go(func() error { return loadIfNeeded(ctx, s.stores.BlogPosts) })
	return g.Wait()
}

func loadIfNeeded[T db.Record](ctx context.Context, st *store.Store[T]) error {
	if _, err := st.Current(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", st.Name(), err)
	}
	return nil
}

// Dashboard computes the admin overview from the current snapshots
func (s *Services) Dashboard(ctx context.Context) (views.Dashboard, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return views.Dashboard{}, err
	}
	return views.BuildDashboard(views.DashboardInput{
		Donations:  s.stores.Donations.Snapshot(),
		Volunteers: s.stores.Volunteers.Snapshot(),
		Events:     s.stores.Events.Snapshot(),
		Posts:      s.stores.BlogPosts.Snapshot(),
		Locations:  s.stores.Locations.Snapshot(),
		Now:        s.now(),
	}), nil
}

// Analytics summarises page views since the given time. It always reads
// fresh data since the analytics collection has no live updates.
func (s *Services) Analytics(ctx context.Context, since time.Time) (views.AnalyticsSummary, error) {
	if err := s.stores.Analytics.Fetch(ctx); err != nil {
		return views.AnalyticsSummary{}, fmt.Errorf("failed to load analytics: %w", err)
	}
	return views.SummariseAnalytics(s.stores.Analytics.Snapshot(), since), nil
}

// BuildStatsReport lays a dashboard out as spreadsheet sections
func BuildStatsReport(d views.Dashboard, generatedAt time.Time) *sheetsclient.StatsReport {
	statusSection := func(title string, counts []views.StatusCount) sheetsclient.StatsSection {
		section := sheetsclient.StatsSection{Title: title, Header: []string{"Status", "Count"}}
		for _, c := range counts {
			section.Rows = append(section.Rows, []interface{}{c.Status, c.Count})
		}
		return section
	}

	totals := sheetsclient.StatsSection{
		Title:  "Totals",
		Header: []string{"Measure", "Value"},
		Rows: [][]interface{}{
			{"Donations", d.TotalDonations},
			{"Items", d.TotalItems},
			{"Drop-off locations", d.Locations},
		},
	}

	categories := sheetsclient.StatsSection{
		Title:  "Items by category",
		Header: []string{"Category", "Lines", "Quantity", "Percentage"},
	}
	for _, c := range d.Categories {
		categories.Rows = append(categories.Rows, []interface{}{c.Category, c.Lines, c.Quantity, c.Percentage})
	}

	volunteers := sheetsclient.StatsSection{
		Title:  "Top volunteers",
		Header: []string{"Name", "Completed tasks", "Rating"},
	}
	for _, v := range d.TopVolunteers {
		volunteers.Rows = append(volunteers.Rows, []interface{}{v.Name, v.CompletedTasks, v.Rating})
	}

	return &sheetsclient.StatsReport{
		GeneratedAt: generatedAt,
		Sections: []sheetsclient.StatsSection{
			totals,
			statusSection("Donations by status", d.DonationsByStatus),
			statusSection("Volunteers by status", d.VolunteersByStatus),
			statusSection("Events by status", d.EventsByStatus),
			statusSection("Posts by status", d.PostsByStatus),
			categories,
			volunteers,
		},
	}
}

// ExportStats publishes the current dashboard to a spreadsheet tab and
// returns the tab title
func (s *Services) ExportStats(ctx context.Context, publisher StatsPublisher, spreadsheetID string) (string, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return "", err
	}

	report := BuildStatsReport(dashboard, s.now())
	tab, err := publisher.PublishStats(spreadsheetID, report)
	if err != nil {
		return "", fmt.Errorf("failed to publish stats: %w", err)
	}

	s.logger.Info("Published stats", zap.String("spreadsheet_id", spreadsheetID), zap.String("tab", tab))
	return tab, nil
}
