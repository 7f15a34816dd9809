// Package commands defines all Cobra CLI commands for the briefly binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/audit"
	"github.com/brieflyhq/briefly/internal/config"
	"github.com/brieflyhq/briefly/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "briefly",
		Short: "Briefly generates and delivers AI-written business reports",
		Long: `Briefly is an automated sales and marketing reporting pipeline.

It retrieves business records from a Qdrant vector store, runs a two-stage
analyst/writer LLM conversation to produce grounded reports, renders a chart
catalog from the raw datasets, and delivers everything by email and Telegram
on a daily schedule.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.briefly/config.yaml).
See 'briefly --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.briefly/config.yaml)")

	root.AddCommand(
		NewGenerateCmd(),
		NewRunCmd(),
		NewChartsCmd(),
		NewDeliverCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
