package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/boat-hire/pkg/utils"
)

// AuthorizeCmd creates the authorize command
func AuthorizeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:         "authorize",
		Short:       "Authorize the Gmail account used for booking emails",
		Long:        "Runs the Google consent flow and stores the token for this environment so serve can send email unattended.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{SkipDatabase: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthClient, err := app.Cfg.LoadOAuthClient()
			if err != nil {
				return fmt.Errorf("failed to load OAuth client config: %w", err)
			}
			oauthConfig, err := utils.GetOAuthConfig(oauthClient)
			if err != nil {
				return err
			}

			if _, err := utils.AuthorizeWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Authorized, token stored for environment %q\n\n", app.Env)
			return nil
		},
	}
}
