package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/utils"
)

// AuthorizeCmd creates the authorize command
func AuthorizeCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Grant spreadsheet and mailbox access for this environment",
		Long: `Runs the OAuth consent flow in a browser and stores the token used for
donation receipts and stats exports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("authorize command", zap.Bool("force", force))

			oauthClient, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				return fmt.Errorf("failed to load oauth client: %w", err)
			}
			oauthConfig, err := utils.GetOAuthConfig(oauthClient)
			if err != nil {
				return err
			}

			if force {
				utils.ClearToken()
				if err := utils.DeleteTokenFile(app.Env); err != nil {
					return err
				}
			}

			if _, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger); err != nil {
				return err
			}

			fmt.Printf("\n✓ Authorized for environment %s\n\n", app.Env)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the stored token and consent again")

	return cmd
}
