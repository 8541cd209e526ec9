package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhoadesScholar/llm-experiments/pkg/cliui"
	"github.com/rhoadesScholar/llm-experiments/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .telephone/ directory. Keys use dotted notation matching
the TOML section structure.

Valid keys:
  model.provider, model.name, model.target,
  judge.provider, judge.name, judge.target,
  distill.mode, distill.max_iterations, distill.convergence_threshold,
  distill.metric, distill.timeout,
  experiment.contexts, experiment.reapply_context,
  results.provider, results.sqlite_path, results.postgres_dsn,
  events.enabled, events.brokers, events.topic,
  embedding.provider, embedding.target, embedding.model

Examples:
  telephone config set model.provider anthropic
  telephone config set distill.max_iterations 10
  telephone config set experiment.contexts isolation,embodied_positive`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	err = cfger.SetConfigValue(key, value)
	if err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
