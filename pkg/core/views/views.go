// Package views computes the aggregates shown on the dashboard and public
// pages. Every function is a pure function of the snapshot it is given.
package views

import (
	"math"
	"sort"
	"strings"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// StatusCount is the number of items in one status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

var (
	donationStatuses  = []string{"pending", "confirmed", "collected", "distributed", "cancelled"}
	volunteerStatuses = []string{"pending", "approved", "active", "inactive", "rejected"}
	eventStatuses     = []string{"draft", "published", "ongoing", "completed", "cancelled"}
	postStatuses      = []string{"draft", "published", "archived"}
)

// CountBy groups items by key and counts each group
func CountBy[T any](items []T, key func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

// statusCounts lists every known status in lifecycle order followed by any
// unknown statuses in alphabetical order
func statusCounts(counts map[string]int, known []string) []StatusCount {
	out := make([]StatusCount, 0, len(known))
	seen := make(map[string]bool, len(known))
	for _, s := range known {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
		seen[s] = true
	}

	var extra []string
	for s := range counts {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

func DonationStatusCounts(donations []db.Donation) []StatusCount {
	return statusCounts(CountBy(donations, func(d db.Donation) string { return string(d.Status) }), donationStatuses)
}

func VolunteerStatusCounts(volunteers []db.Volunteer) []StatusCount {
	return statusCounts(CountBy(volunteers, func(v db.Volunteer) string { return string(v.Status) }), volunteerStatuses)
}

func EventStatusCounts(events []db.Event) []StatusCount {
	return statusCounts(CountBy(events, func(e db.Event) string { return string(e.Status) }), eventStatuses)
}

func PostStatusCounts(posts []db.BlogPost) []StatusCount {
	return statusCounts(CountBy(posts, func(p db.BlogPost) string { return string(p.Status) }), postStatuses)
}

// CategoryTotal aggregates donated items of one category
type CategoryTotal struct {
	Category   string  `json:"category"`
	Lines      int     `json:"lines"`
	Quantity   int     `json:"quantity"`
	Percentage float64 `json:"percentage"`
}

// CategoryTotals sums item quantities per category across non-cancelled
// donations, largest first. Percentages are of the total quantity, rounded
// to two decimals.
func CategoryTotals(donations []db.Donation) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	total := 0
	for _, d := range donations {
		if d.Status == db.DonationCancelled {
			continue
		}
		for _, item := range d.Items {
			category := strings.ToLower(strings.TrimSpace(item.Category))
			if category == "" {
				category = "other"
			}
			ct, ok := byCategory[category]
			if !ok {
				ct = &CategoryTotal{Category: category}
				byCategory[category] = ct
			}
			ct.Lines++
			ct.Quantity += item.Quantity
			total += item.Quantity
		}
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		if total > 0 {
			ct.Percentage = round2(float64(ct.Quantity) * 100 / float64(total))
		}
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopVolunteers returns up to n volunteers ranked by completed tasks, then
// rating, then name. Rejected volunteers are never ranked.
func TopVolunteers(volunteers []db.Volunteer, n int) []db.Volunteer {
	ranked := make([]db.Volunteer, 0, len(volunteers))
	for _, v := range volunteers {
		if v.Status != db.VolunteerRejected {
			ranked = append(ranked, v)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CompletedTasks != b.CompletedTasks {
			return a.CompletedTasks > b.CompletedTasks
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
