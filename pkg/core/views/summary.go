package views

import (
	"sort"
	"time"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// Dashboard is the admin overview
type Dashboard struct {
	TotalDonations     int             `json:"totalDonations"`
	TotalItems         int             `json:"totalItems"`
	DonationsByStatus  []StatusCount   `json:"donationsByStatus"`
	VolunteersByStatus []StatusCount   `json:"volunteersByStatus"`
	EventsByStatus     []StatusCount   `json:"eventsByStatus"`
	PostsByStatus      []StatusCount   `json:"postsByStatus"`
	Categories         []CategoryTotal `json:"categories"`
	TopVolunteers      []db.Volunteer  `json:"topVolunteers"`
	UpcomingEvents     []db.Event      `json:"upcomingEvents"`
	Locations          int             `json:"locations"`
}

// DashboardInput is the set of snapshots the dashboard is computed from
type DashboardInput struct {
	Donations  []db.Donation
	Volunteers []db.Volunteer
	Events     []db.Event
	Posts      []db.BlogPost
	Locations  []db.DropoffLocation
	Now        time.Time
}

const (
	dashboardTopVolunteers  = 5
	dashboardUpcomingEvents = 5
)

func BuildDashboard(in DashboardInput) Dashboard {
	totalItems := 0
	for _, d := range in.Donations {
		totalItems += d.TotalQuantity()
	}

	return Dashboard{
		TotalDonations:     len(in.Donations),
		TotalItems:         totalItems,
		DonationsByStatus:  DonationStatusCounts(in.Donations),
		VolunteersByStatus: VolunteerStatusCounts(in.Volunteers),
		EventsByStatus:     EventStatusCounts(in.Events),
		PostsByStatus:      PostStatusCounts(in.Posts),
		Categories:         CategoryTotals(in.Donations),
		TopVolunteers:      TopVolunteers(in.Volunteers, dashboardTopVolunteers),
		UpcomingEvents:     UpcomingEvents(in.Events, in.Now, dashboardUpcomingEvents),
		Locations:          len(in.Locations),
	}
}

// Impact is the public summary on the home page
type Impact struct {
	DonationsReceived int `json:"donationsReceived"`
	ItemsDistributed  int `json:"itemsDistributed"`
	ActiveVolunteers  int `json:"activeVolunteers"`
	EventsCompleted   int `json:"eventsCompleted"`
}

func BuildImpact(donations []db.Donation, volunteers []db.Volunteer, events []db.Event) Impact {
	var impact Impact
	for _, d := range donations {
		if d.Status == db.DonationCancelled {
			continue
		}
		impact.DonationsReceived++
		if d.Status == db.DonationDistributed {
			impact.ItemsDistributed += d.TotalQuantity()
		}
	}
	for _, v := range volunteers {
		if v.Status == db.VolunteerActive || v.Status == db.VolunteerApproved {
			impact.ActiveVolunteers++
		}
	}
	for _, e := range events {
		if e.Status == db.EventCompleted {
			impact.EventsCompleted++
		}
	}
	return impact
}

// PathCount is the number of views of one path
type PathCount struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// DayCount is the number of views on one UTC day
type DayCount struct {
	Day   string `json:"day"`
	Views int    `json:"views"`
}

// AnalyticsSummary aggregates page views
type AnalyticsSummary struct {
	TotalViews int         `json:"totalViews"`
	ByPath     []PathCount `json:"byPath"`
	ByDay      []DayCount  `json:"byDay"`
}

// SummariseAnalytics counts page views created at or after since. A zero
// since counts every view.
func SummariseAnalytics(events []db.AnalyticsEvent, since time.Time) AnalyticsSummary {
	byPath := make(map[string]int)
	byDay := make(map[string]int)
	total := 0
	for _, e := range events {
		if e.Name != db.PageViewEvent || e.CreatedAt.Before(since) {
			continue
		}
		total++
		byPath[e.Path]++
		byDay[e.CreatedAt.UTC().Format("2006-01-02")]++
	}

	summary := AnalyticsSummary{
		TotalViews: total,
		ByPath:     make([]PathCount, 0, len(byPath)),
		ByDay:      make([]DayCount, 0, len(byDay)),
	}
	for path, n := range byPath {
		summary.ByPath = append(summary.ByPath, PathCount{Path: path, Views: n})
	}
	sort.Slice(summary.ByPath, func(i, j int) bool {
		if summary.ByPath[i].Views != summary.ByPath[j].Views {
			return summary.ByPath[i].Views > summary.ByPath[j].Views
		}
		return summary.ByPath[i].Path < summary.ByPath[j].Path
	})
	for day, n := range byDay {
		summary.ByDay = append(summary.ByDay, DayCount{Day: day, Views: n})
	}
	sort.Slice(summary.ByDay, func(i, j int) bool {
		return summary.ByDay[i].Day < summary.ByDay[j].Day
	})
	return summary
}
