package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/cmd/cli/commands"
	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/core/services"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/docstore"
	"github.com/shivamksharma/devdonations/pkg/docstore/memstore"
	"github.com/shivamksharma/devdonations/pkg/postgres"
	"github.com/shivamksharma/devdonations/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Ctx = ctx

	rootCmd := &cobra.Command{
		Use:   "devdonations",
		Short: "DevDonations - collect and distribute donated clothing",
		Long:  `Runs the DevDonations web service and the admin tooling around it: migrations, seeding, listings and stats exports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.SeedCmd(app))
	rootCmd.AddCommand(commands.ListCmd(app))
	rootCmd.AddCommand(commands.StatsCmd(app))
	rootCmd.AddCommand(commands.ExportStatsCmd(app))
	rootCmd.AddCommand(commands.AuthorizeCmd(app))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up logger, config, the document backend, stores and services
func initApp() error {
	var err error
	app.Env = env

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("backend", app.Cfg.Backend),
		zap.String("project_id", app.Cfg.Remote.ProjectID))

	var backend docstore.Backend
	switch app.Cfg.Backend {
	case "postgres":
		app.Logger.Info("Connecting to database")
		app.Postgres, err = postgres.NewDB(app.Ctx, app.Cfg.Secrets.DatabaseURL, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		backend = app.Postgres
	default:
		app.Logger.Warn("Using the in-memory backend, data is lost on exit")
		backend = memstore.New()
	}

	app.Database = db.New(backend, app.Logger, app.Cfg.Remote.AppID)

	storeOpts, err := storeOptions(app.Cfg)
	if err != nil {
		return err
	}
	app.Stores = store.NewStores(app.Database, app.Logger, storeOpts...)
	app.Services = services.New(app.Stores, app.Logger)

	app.Logger.Info("Database initialized successfully")
	return nil
}

func storeOptions(cfg *config.Config) ([]store.Option, error) {
	policy, err := store.ParsePolicy(cfg.StorePolicy)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithPolicy(policy)}

	if cfg.SnapshotCacheDir != "" {
		cache, err := store.NewFileCache(cfg.SnapshotCacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		opts = append(opts, store.WithCache(cache))
	}
	return opts, nil
}

func closeApp() {
	if app.Stores != nil {
		app.Stores.Close()
		app.Stores = nil
	}
	if app.Database != nil {
		// closes the backend, including the postgres pool
		app.Database.Close()
		app.Database = nil
		app.Postgres = nil
	} else if app.Postgres != nil {
		app.Postgres.Close()
		app.Postgres = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
