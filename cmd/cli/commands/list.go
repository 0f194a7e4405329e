package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorBold   = "\033[1m"
)

// row is one printed line of a collection listing
type row struct {
	ID      string
	Status  string
	Summary string
	Updated time.Time
}

// ListCmd creates the list command
func ListCmd(app *AppContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:       "list <collection>",
		Short:     "List the documents of a collection",
		Long:      "Lists donations, volunteers, events, locations or blogPosts, most recently updated first.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{db.DonationsCollection, db.VolunteersCollection, db.EventsCollection, db.LocationsCollection, db.BlogPostsCollection},
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			app.Logger.Debug("list command", zap.String("collection", collection), zap.String("status", status))

			rows, err := collectionRows(app, collection)
			if err != nil {
				return err
			}
			rows = filterRows(rows, status)

			fmt.Printf("\n%s%s%s (%d)\n\n", colorBold, collection, colorReset, len(rows))
			for _, r := range rows {
				fmt.Printf("  %-22s %s%-12s%s %-10s %s\n",
					r.ID, statusColor(r.Status), r.Status, colorReset, r.Updated.Format("2006-01-02"), r.Summary)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show documents with this status")

	return cmd
}

func collectionRows(app *AppContext, collection string) ([]row, error) {
	switch collection {
	case db.DonationsCollection:
		return fetchRows(app, app.Stores.Donations, donationRow)
	case db.VolunteersCollection:
		return fetchRows(app, app.Stores.Volunteers, volunteerRow)
	case db.EventsCollection:
		return fetchRows(app, app.Stores.Events, eventRow)
	case db.LocationsCollection:
		return fetchRows(app, app.Stores.Locations, locationRow)
	case db.BlogPostsCollection:
		return fetchRows(app, app.Stores.BlogPosts, postRow)
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

func fetchRows[T db.Record](app *AppContext, s *store.Store[T], toRow func(T) row) ([]row, error) {
	if err := s.Fetch(app.Ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.Name(), err)
	}
	items := s.Snapshot()
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, toRow(item))
	}
	return rows, nil
}

func donationRow(d db.Donation) row {
	return row{
		ID:      d.ID,
		Status:  string(d.Status),
		Summary: fmt.Sprintf("%s, %d item(s)", d.Donor.Name, d.TotalQuantity()),
		Updated: d.UpdatedAt,
	}
}

func volunteerRow(v db.Volunteer) row {
	return row{
		ID:      v.ID,
		Status:  string(v.Status),
		Summary: fmt.Sprintf("%s <%s>", v.Name, v.Email),
		Updated: v.UpdatedAt,
	}
}

func eventRow(e db.Event) row {
	return row{
		ID:      e.ID,
		Status:  string(e.Status),
		Summary: fmt.Sprintf("%s (%s, %s)", e.Title, e.Type, e.StartDate.Format("2006-01-02")),
		Updated: e.UpdatedAt,
	}
}

func locationRow(l db.DropoffLocation) row {
	return row{
		ID:      l.ID,
		Summary: fmt.Sprintf("%s, %s, %s", l.Name, l.Address, l.City),
		Updated: l.UpdatedAt,
	}
}

func postRow(p db.BlogPost) row {
	return row{
		ID:      p.ID,
		Status:  string(p.Status),
		Summary: fmt.Sprintf("%s /blog/%s", p.Title, p.Slug),
		Updated: p.UpdatedAt,
	}
}

// filterRows keeps rows matching status (all when empty), newest first
func filterRows(rows []row, status string) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if status == "" || strings.EqualFold(r.Status, status) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Updated.After(out[j].Updated)
	})
	return out
}

func statusColor(status string) string {
	switch status {
	case "confirmed", "collected", "distributed", "approved", "active", "published", "ongoing", "completed":
		return colorGreen
	case "pending", "draft":
		return colorYellow
	case "cancelled", "rejected", "inactive", "archived":
		return colorRed
	default:
		return colorReset
	}
}
