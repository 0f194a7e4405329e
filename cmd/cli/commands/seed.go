package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/auth"
	"github.com/shivamksharma/devdonations/pkg/db"
)

const adminPasswordEnv = "DEVDONATIONS_ADMIN_PASSWORD"

var sampleLocations = []db.DropoffLocation{
	{
		Name:           "Community Clothing Closet",
		Address:        "12 Market Street",
		City:           "Springfield",
		State:          "IL",
		ZipCode:        "62701",
		ContactName:    "Front desk",
		ContactPhone:   "555-0100",
		OperatingHours: "Mon-Fri 9am-5pm",
	},
	{
		Name:           "Westside Library",
		Address:        "480 Oak Avenue",
		City:           "Springfield",
		State:          "IL",
		ZipCode:        "62704",
		ContactName:    "Circulation desk",
		ContactPhone:   "555-0142",
		OperatingHours: "Tue-Sat 10am-6pm",
	},
}

// SeedCmd creates the seed command
func SeedCmd(app *AppContext) *cobra.Command {
	var (
		email     string
		name      string
		locations bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first admin account and optional sample data",
		Long: `Creates an admin account, or promotes an existing account with the same
email. The password is read from ` + adminPasswordEnv + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("seed command", zap.String("email", email), zap.Bool("locations", locations))

			if app.Postgres != nil {
				if err := app.Postgres.RunMigrations(app.Ctx); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}

			password := os.Getenv(adminPasswordEnv)
			if password == "" {
				return fmt.Errorf("%s must be set", adminPasswordEnv)
			}

			authSvc := auth.NewService(app.Database.Users, auth.NewSessions(app.Cfg.SessionTTL), nil, app.Logger)
			id, err := authSvc.EnsureAdmin(app.Ctx, email, password, name)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Admin ready: %s (%s)\n", email, id)

			if locations {
				created, err := seedLocations(app)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Sample locations created: %d\n", created)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Admin display name")
	cmd.Flags().BoolVar(&locations, "locations", false, "Also create sample drop-off locations")
	cmd.MarkFlagRequired("email")

	return cmd
}

// seedLocations adds the sample locations whose names are not taken yet
func seedLocations(app *AppContext) (int, error) {
	if err := app.Stores.Locations.Fetch(app.Ctx); err != nil {
		return 0, err
	}

	existing := make(map[string]bool)
	for _, l := range app.Stores.Locations.Snapshot() {
		existing[strings.ToLower(l.Name)] = true
	}

	created := 0
	for _, l := range sampleLocations {
		if existing[strings.ToLower(l.Name)] {
			continue
		}
		if _, err := app.Services.CreateLocation(app.Ctx, l); err != nil {
			return created, fmt.Errorf("failed to create location %q: %w", l.Name, err)
		}
		created++
	}
	return created, nil
}
