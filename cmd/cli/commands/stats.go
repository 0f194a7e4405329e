package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/clients/sheetsclient"
	"github.com/shivamksharma/devdonations/pkg/core/views"
)

// StatsCmd creates the stats command
func StatsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the admin dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("stats command")

			dashboard, err := app.Services.Dashboard(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Print(renderDashboard(dashboard))
			return nil
		},
	}
}

// ExportStatsCmd creates the export-stats command
func ExportStatsCmd(app *AppContext) *cobra.Command {
	var spreadsheetID string

	cmd := &cobra.Command{
		Use:   "export-stats",
		Short: "Publish the dashboard figures to a new spreadsheet tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if spreadsheetID == "" {
				spreadsheetID = app.Cfg.StatsSheetID
			}
			app.Logger.Debug("export-stats command", zap.String("spreadsheet_id", spreadsheetID))

			if spreadsheetID == "" {
				return fmt.Errorf("no spreadsheet given, pass --sheet or set statsSheetID in the config")
			}

			oauthClient, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				return fmt.Errorf("failed to load oauth client: %w", err)
			}
			sheets, err := sheetsclient.NewClient(app.Ctx, oauthClient, app.Env, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to create sheets client: %w", err)
			}

			tab, err := app.Services.ExportStats(app.Ctx, sheets, spreadsheetID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Stats published to tab %q\n\n", tab)
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "sheet", "", "Spreadsheet ID (defaults to statsSheetID from the config)")

	return cmd
}

func renderDashboard(d views.Dashboard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%sDashboard%s\n\n", colorBold, colorReset)
	fmt.Fprintf(&b, "  Donations:  %d (%d items)\n", d.TotalDonations, d.TotalItems)
	fmt.Fprintf(&b, "  Locations:  %d\n", d.Locations)

	writeCounts(&b, "Donations by status", d.DonationsByStatus)
	writeCounts(&b, "Volunteers by status", d.VolunteersByStatus)
	writeCounts(&b, "Events by status", d.EventsByStatus)
	writeCounts(&b, "Posts by status", d.PostsByStatus)

	if len(d.Categories) > 0 {
		fmt.Fprintf(&b, "\n%sItems by category%s\n", colorBold, colorReset)
		for _, c := range d.Categories {
			fmt.Fprintf(&b, "  %-16s %5d  %5.1f%%\n", c.Category, c.Quantity, c.Percentage)
		}
	}

	if len(d.TopVolunteers) > 0 {
		fmt.Fprintf(&b, "\n%sTop volunteers%s\n", colorBold, colorReset)
		for i, v := range d.TopVolunteers {
			fmt.Fprintf(&b, "  %d. %-24s %3d tasks  %.1f★\n", i+1, v.Name, v.CompletedTasks, v.Rating)
		}
	}

	if len(d.UpcomingEvents) > 0 {
		fmt.Fprintf(&b, "\n%sUpcoming events%s\n", colorBold, colorReset)
		for _, e := range d.UpcomingEvents {
			fmt.Fprintf(&b, "  %s  %s\n", e.StartDate.Format("2006-01-02 (Monday)"), e.Title)
		}
	}
	b.WriteString("\n")

	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts []views.StatusCount) {
	fmt.Fprintf(b, "\n%s%s%s\n", colorBold, title, colorReset)
	for _, c := range counts {
		fmt.Fprintf(b, "  %s%-12s%s %d\n", statusColor(c.Status), c.Status, colorReset, c.Count)
	}
}
