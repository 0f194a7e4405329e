package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/api/httpserver"
	"github.com/shivamksharma/devdonations/pkg/auth"
	"github.com/shivamksharma/devdonations/pkg/changefeed"
	"github.com/shivamksharma/devdonations/pkg/clients/gmailclient"
	"github.com/shivamksharma/devdonations/pkg/clients/mediaclient"
	"github.com/shivamksharma/devdonations/pkg/core/services"
	"github.com/shivamksharma/devdonations/pkg/utils"
)

const (
	feedDrainTimeout     = 10 * time.Second
	sessionPurgeInterval = 5 * time.Minute
	googleCallbackPath   = "/admin/auth/google/callback"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the public site and admin API",
		Long: `Runs the HTTP server together with the change feed workers and the session
purger. Receipts, media uploads and Google sign-in are enabled when their
configuration and credentials are present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("serve command", zap.String("addr", app.Cfg.ListenAddr))

			if app.Postgres != nil {
				if err := app.Postgres.RunMigrations(app.Ctx); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}

			producer, err := changefeed.NewProducer(app.Cfg.ChangeFeed, app.Cfg.Secrets.AMQPURL, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to create change feed producer: %w", err)
			}
			feed := changefeed.New(producer, app.Logger, changefeed.Options{
				Workers:    app.Cfg.ChangeFeed.Workers,
				BufferSize: app.Cfg.ChangeFeed.BufferSize,
				Source:     app.Cfg.Remote.MessagingSenderID,
			})
			app.Database.AddObserver(feed)

			oauthClient, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				app.Logger.Warn("No OAuth client found, receipts and Google sign-in disabled", zap.Error(err))
			}

			var opts []services.Option
			if mailer := receiptMailer(app, oauthClient); mailer != nil {
				opts = append(opts, services.WithMailer(mailer))
			}
			if media, err := mediaStorage(app); err != nil {
				return err
			} else if media != nil {
				opts = append(opts, services.WithMedia(media))
			}
			app.Services = services.New(app.Stores, app.Logger, opts...)

			sessions := auth.NewSessions(app.Cfg.SessionTTL)
			authSvc := auth.NewService(app.Database.Users, sessions, googleProvider(app, oauthClient), app.Logger)

			server := httpserver.New(app.Services, app.Database.BlogPosts, app.Database.Analytics, authSvc, app.Logger, httpserver.Options{
				APIKey:        app.Cfg.Remote.APIKey,
				SecureCookies: !isLocal(app.Cfg.Remote.AuthDomain),
			})

			if err := app.Stores.FetchAll(app.Ctx); err != nil {
				app.Logger.Warn("Initial fetch failed, stores will retry on demand", zap.Error(err))
			}

			releaseLive, err := app.Stores.SubscribeLive()
			if err != nil {
				return fmt.Errorf("failed to open live listeners: %w", err)
			}
			defer releaseLive()

			g, ctx := errgroup.WithContext(app.Ctx)
			g.Go(func() error {
				return feed.Run(ctx, feedDrainTimeout)
			})
			g.Go(func() error {
				return sessions.Run(ctx, sessionPurgeInterval)
			})
			g.Go(func() error {
				return server.Run(ctx, app.Cfg.ListenAddr)
			})

			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Printf("\n✓ Server stopped\n")
			return nil
		},
	}
}

// receiptMailer returns nil when receipts are off or no mailbox token is stored
func receiptMailer(app *AppContext, oauthClient *config.OAuthClientConfig) gmailclient.Mailer {
	if !app.Cfg.ReceiptsEnabled {
		return nil
	}
	if oauthClient == nil {
		app.Logger.Warn("Receipts enabled but no OAuth client is configured")
		return nil
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthClient)
	if err != nil {
		app.Logger.Warn("Receipts disabled", zap.Error(err))
		return nil
	}
	token, err := utils.GetStoredToken(app.Ctx, oauthConfig, app.Env, app.Logger)
	if err != nil {
		if errors.Is(err, utils.ErrNoToken) {
			app.Logger.Warn("Receipts disabled, run the authorize command to grant mailbox access")
		} else {
			app.Logger.Warn("Receipts disabled", zap.Error(err))
		}
		return nil
	}

	client, err := gmailclient.NewClient(app.Ctx, oauthClient, token, app.Cfg.GmailSender)
	if err != nil {
		app.Logger.Warn("Receipts disabled", zap.Error(err))
		return nil
	}
	app.Logger.Info("Donation receipts enabled")
	return client
}

func mediaStorage(app *AppContext) (mediaclient.Storage, error) {
	if app.Cfg.Media == nil {
		app.Logger.Info("No media store configured, image uploads disabled")
		return nil, nil
	}
	client, err := mediaclient.NewClient(app.Ctx, mediaclient.Options{
		Endpoint:       app.Cfg.Media.Endpoint,
		PublicEndpoint: app.Cfg.Media.PublicEndpoint,
		AccessKey:      app.Cfg.Secrets.MinIOAccessKey,
		SecretKey:      app.Cfg.Secrets.MinIOSecretKey,
		Bucket:         app.Cfg.Remote.StorageBucket,
		UseSSL:         app.Cfg.Media.UseSSL,
	}, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to media store: %w", err)
	}
	return client, nil
}

func googleProvider(app *AppContext, oauthClient *config.OAuthClientConfig) auth.IdentityProvider {
	if oauthClient == nil {
		return nil
	}
	oauthConfig, err := utils.SignInConfig(oauthClient, callbackURL(app.Cfg.Remote.AuthDomain))
	if err != nil {
		app.Logger.Warn("Google sign-in disabled", zap.Error(err))
		return nil
	}
	return auth.NewGoogleProvider(oauthConfig)
}

func callbackURL(authDomain string) string {
	scheme := "https"
	if isLocal(authDomain) {
		scheme = "http"
	}
	return scheme + "://" + strings.TrimSuffix(authDomain, "/") + googleCallbackPath
}

func isLocal(authDomain string) bool {
	host := authDomain
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host == "localhost" || host == "127.0.0.1"
}
