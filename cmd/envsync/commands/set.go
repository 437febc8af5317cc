package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/envsync/internal/app"
	"github.com/systmms/envsync/internal/config"
)

func NewSetCommand(settings *config.Settings) *cobra.Command {
	var (
		envName string
		target  string
	)

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration key",
		Long: `Assign a key in an environment's configuration document.

Values that parse as JSON are stored typed (numbers, booleans, objects,
arrays, null); anything else is stored as a string.

Examples:
  envsync set replicas 3 --env production
  envsync set debug true --env staging
  envsync set db '{"host":"db1","port":5432}' --env production --target both`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := app.ParseTarget(target)
			if err != nil {
				return err
			}

			key := args[0]
			value := parseValue(args[1])

			a := newApp(settings)

			if tgt == app.TargetLocal {
				if err := a.SetConfig(context.Background(), key, value, envName, tgt); err != nil {
					return err
				}
			} else {
				_, stop := startSpinner("Updating remote configuration...", settings)
				err = a.SetConfig(context.Background(), key, value, envName, tgt)
				stop()
				if err != nil {
					return err
				}
			}

			settings.Logger.Info("Set %s in %s (%s)", key, envName, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name")
	cmd.Flags().StringVar(&target, "target", "local", "Where to write: local, aws, or both")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
