package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/envsync/internal/app"
	"github.com/systmms/envsync/internal/config"
)

func NewGetCommand(settings *config.Settings) *cobra.Command {
	var (
		envName string
		source  string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print an environment's configuration",
		Long: `Print the resolved configuration for an environment.

The local view overlays the shared default document with the environment's
own document. The merged view additionally overlays the remote secret, which
wins on conflicting keys.

Examples:
  # Merged view as pretty JSON
  envsync get --env production

  # Local documents only
  envsync get --env production --source local

  # Render as KEY=value lines for a .env file
  envsync get --env production --format env > .env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := app.ParseSource(source)
			if err != nil {
				return err
			}
			fmtOut, err := app.ParseFormat(format)
			if err != nil {
				return err
			}

			a := newApp(settings)

			var out string
			if src == app.SourceLocal {
				out, err = a.GetConfig(context.Background(), envName, src, fmtOut)
			} else {
				_, stop := startSpinner("Fetching remote configuration...", settings)
				out, err = a.GetConfig(context.Background(), envName, src, fmtOut)
				stop()
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name")
	cmd.Flags().StringVar(&source, "source", "merged", "Source to read: local, aws, or merged")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or env")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
