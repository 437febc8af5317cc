package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/lifecycle"
	"github.com/systmms/envsync/internal/secretstore"
	"github.com/systmms/envsync/internal/syncer"
)

func NewAwsCommand(settings *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Mirror configuration to AWS Secrets Manager",
	}

	cmd.AddCommand(
		newAwsPushCommand(settings),
		newAwsPullCommand(settings),
		newAwsSyncCommand(settings),
		newAwsDeleteCommand(settings),
	)

	return cmd
}

func newAwsPushCommand(settings *config.Settings) *cobra.Command {
	var (
		env      string
		override bool
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push local configuration to AWS Secrets Manager",
		Long: `Push the resolved local configuration for an environment (shared defaults
overlaid with the environment's own values) to its remote secret.

If the secret already exists you are asked before it is overwritten;
--override skips the prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(settings)

			s, stop := startSpinner("Pushing configuration to AWS...", settings)
			result, err := a.Push(context.Background(), env, syncer.Options{
				Override: override,
				Decide:   decider(settings, s),
			})
			stop()
			if err != nil {
				return err
			}
			if result.Cancelled {
				settings.Logger.Warn("Push cancelled, remote secret left untouched")
				return nil
			}

			name := secretstore.Name(settings.PackageName, env)
			if result.Created {
				settings.Logger.Info("Created secret %s (version %s)", name, result.Version.Token)
			} else {
				settings.Logger.Info("Updated secret %s (version %s)", name, result.Version.Token)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "Environment to push")
	cmd.Flags().BoolVar(&override, "override", false, "Overwrite an existing secret without asking")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func newAwsPullCommand(settings *config.Settings) *cobra.Command {
	var (
		env      string
		override bool
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull remote configuration into the local store",
		Long: `Fetch the remote secret for an environment and write it as the local
configuration document, replacing the existing one.

If a local document already exists you are asked before it is overwritten;
--override skips the prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(settings)

			s, stop := startSpinner("Pulling configuration from AWS...", settings)
			result, err := a.Pull(context.Background(), env, syncer.Options{
				Override: override,
				Decide:   decider(settings, s),
			})
			stop()
			if err != nil {
				return err
			}
			if result.Cancelled {
				settings.Logger.Warn("Pull cancelled, local configuration left untouched")
				return nil
			}

			settings.Logger.Info("Wrote %d keys to %s environment", len(result.Document), env)
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "Environment to pull")
	cmd.Flags().BoolVar(&override, "override", false, "Overwrite the local document without asking")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func newAwsSyncCommand(settings *config.Settings) *cobra.Command {
	var (
		env    string
		prefer string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local and remote configuration",
		Long: `Merge the local document and remote secret for an environment and write
the result to both sides. Keys present on only one side are kept; for keys
present on both, --prefer picks the winning side.

The local document is written first. If the remote write then fails the two
sides are left divergent and the error says which side holds the merged
result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := syncer.ParsePreference(prefer)
			if err != nil {
				return err
			}

			a := newApp(settings)

			_, stop := startSpinner("Syncing configuration with AWS...", settings)
			result, err := a.Sync(context.Background(), env, pref)
			stop()
			if err != nil {
				return err
			}

			settings.Logger.Info("Synced %d keys for %s environment (preferring %s)", len(result.Document), env, pref)
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "Environment to sync")
	cmd.Flags().StringVar(&prefer, "prefer", "remote", "Side that wins for conflicting keys (local or remote)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func newAwsDeleteCommand(settings *config.Settings) *cobra.Command {
	var (
		env   string
		force bool
		days  int64
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an environment's remote secret",
		Long: `Delete the remote secret for an environment. The local configuration
document is not touched.

With --days the secret is scheduled for deletion and recoverable until the
window expires. With --force it is deleted immediately and irreversibly.
With neither, you are asked which to use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(settings)

			s, stop := startSpinner("Deleting remote secret...", settings)
			result, err := a.SecretDelete(context.Background(), env, lifecycle.DeleteOptions{
				Force:        force,
				RecoveryDays: days,
				Decide:       decider(settings, s),
			})
			stop()
			if err != nil {
				return err
			}

			reportDeletion(settings, secretstore.Name(settings.PackageName, env), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "Environment whose secret to delete")
	cmd.Flags().BoolVar(&force, "force", false, "Delete immediately and irreversibly")
	cmd.Flags().Int64Var(&days, "days", 0, "Recovery window in days (7-30)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
