// Package configcmder provides the config command for managing persistent
// telephone configuration stored in the .telephone/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent telephone configuration.

Configuration is stored as config.toml in the .telephone/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  model.provider, model.name, model.target,
  judge.provider, judge.name, judge.target,
  distill.mode, distill.max_iterations, distill.convergence_threshold,
  distill.metric, distill.timeout,
  experiment.contexts, experiment.reapply_context,
  results.provider, results.sqlite_path, results.postgres_dsn,
  events.enabled, events.brokers, events.topic,
  embedding.provider, embedding.target, embedding.model

Use subcommands to get, set, or list configuration values:
  telephone config set <key> <value>    Set a configuration value
  telephone config get <key>            Get a configuration value
  telephone config list                 List all configuration values

Examples:
  telephone config set model.provider anthropic
  telephone config set distill.mode with_history
  telephone config get distill.convergence_threshold
  telephone config list`

const configShortDesc string = "Manage persistent telephone configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
