package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/envsync/cmd/envsync/commands"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		configDir      string
		packageName    string
		region         string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Settings placeholder, populated in PersistentPreRunE once flags are parsed
	settings := &config.Settings{}

	rootCmd := &cobra.Command{
		Use:   "envsync",
		Short: "Layered environment configuration with an AWS Secrets Manager mirror",
		Long: `envsync manages per-environment configuration documents layered over
shared defaults, and mirrors each environment to a secret in AWS Secrets
Manager so local files and remote secrets can be pushed, pulled, and
reconciled.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			*settings = *loaded

			// Flags win over file and environment values
			if packageName != "" {
				settings.PackageName = packageName
			}
			if region != "" {
				settings.Region = region
			}
			if configDir != "" {
				settings.ConfigDir = configDir
			}
			settings.NonInteractive = nonInteractive
			settings.Logger = logging.New(debug, noColor)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "envsync.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding environment documents")
	rootCmd.PersistentFlags().StringVar(&packageName, "package", "", "Package name used to derive secret names")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; decline anything that needs confirmation")

	rootCmd.AddCommand(
		commands.NewGetCommand(settings),
		commands.NewSetCommand(settings),
		commands.NewEnvCommand(settings),
		commands.NewAwsCommand(settings),
		commands.NewCompletionCommand(settings),
	)

	if err := rootCmd.Execute(); err != nil {
		// SDK errors can echo request details; scrub static credentials.
		return fmt.Errorf("%s", logging.Redact(err.Error(), []string{string(settings.SecretAccessKey)}))
	}
	return nil
}
