package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/envmanager"
)

func NewEnvCommand(settings *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
	}

	cmd.AddCommand(
		newEnvCreateCommand(settings),
		newEnvListCommand(settings),
		newEnvDeleteCommand(settings),
	)

	return cmd
}

func newEnvCreateCommand(settings *config.Settings) *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new environment",
		Long: `Create a local configuration document for a new environment.

With --template the new environment starts as a copy of an existing one,
with its environment field rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			a := newApp(settings)
			if err := a.EnvCreate(name, envmanager.CreateOptions{Template: template}); err != nil {
				return err
			}

			settings.Logger.Info("Created environment %s", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Existing environment to clone")

	return cmd
}

func newEnvListCommand(settings *config.Settings) *cobra.Command {
	var awsStatus bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List environments",
		Long: `List all environments with a local configuration document. The shared
default document is never listed.

With --aws-status each environment is annotated with whether its remote
secret exists. Probe failures are reported per environment and do not stop
the listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(settings)

			var stop func()
			if awsStatus {
				_, stop = startSpinner("Probing remote secrets...", settings)
			}
			envs, err := a.EnvList(context.Background(), envmanager.ListOptions{RemoteStatus: awsStatus})
			if stop != nil {
				stop()
			}
			if err != nil {
				return err
			}

			if len(envs) == 0 {
				settings.Logger.Info("No environments found in %s", settings.ConfigDir)
				return nil
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()

			out := cmd.OutOrStdout()
			for _, env := range envs {
				switch env.Remote {
				case envmanager.RemotePresent:
					fmt.Fprintf(out, "%s\t%s\n", env.Name, green("aws: present"))
				case envmanager.RemoteAbsent:
					fmt.Fprintf(out, "%s\t%s\n", env.Name, red("aws: absent"))
				case envmanager.RemoteUnknown:
					fmt.Fprintf(out, "%s\t%s\n", env.Name, yellow(fmt.Sprintf("aws: unknown (%v)", env.Err)))
				default:
					fmt.Fprintln(out, env.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&awsStatus, "aws-status", false, "Annotate each environment with its remote secret state")

	return cmd
}

func newEnvDeleteCommand(settings *config.Settings) *cobra.Command {
	var (
		cascade bool
		force   bool
		days    int64
	)

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an environment",
		Long: `Delete an environment's local configuration document.

With --aws the environment's remote secret is deleted as well, immediately
with --force or scheduled after a recovery window with --days. A failed
remote deletion does not restore the local document; retry with
'envsync aws delete' instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			a := newApp(settings)

			var stop func()
			opts := envmanager.DeleteOptions{
				CascadeRemote: cascade,
				Force:         force,
				RecoveryDays:  days,
			}
			if cascade {
				sp, stopFn := startSpinner("Deleting remote secret...", settings)
				stop = stopFn
				opts.Decide = decider(settings, sp)
			}

			result, err := a.EnvDelete(context.Background(), name, opts)
			if stop != nil {
				stop()
			}
			if err != nil {
				return err
			}

			settings.Logger.Info("Deleted environment %s", name)
			if result.Cascade != nil {
				reportDeletion(settings, settings.PackageName+"/"+name, *result.Cascade)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cascade, "aws", false, "Also delete the environment's remote secret")
	cmd.Flags().BoolVar(&force, "force", false, "Delete the remote secret immediately and irreversibly")
	cmd.Flags().Int64Var(&days, "days", 0, "Recovery window in days (7-30) for the remote deletion")

	return cmd
}
