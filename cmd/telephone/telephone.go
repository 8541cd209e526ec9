// Package telephonecmder
package telephonecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/rhoadesScholar/llm-experiments/cmd/telephone/config"
	contextscmder "github.com/rhoadesScholar/llm-experiments/cmd/telephone/contexts"
	reportcmder "github.com/rhoadesScholar/llm-experiments/cmd/telephone/report"
	runcmder "github.com/rhoadesScholar/llm-experiments/cmd/telephone/run"
	versioncmder "github.com/rhoadesScholar/llm-experiments/cmd/version"
)

const telephoneLongDesc string = `Telephone plays the children's game of telephone with a language model.

A seed question is repeatedly condensed by the model until consecutive
rewrites stabilize, the model answers the distilled question, and the answer
is distilled the same way. The whole loop runs once per priming context so
the distilled answers can be compared across contexts.

Run an experiment using:
  telephone run                 Run the full experiment
  telephone contexts            List the priming contexts
  telephone report <run-id>     Render a saved run as markdown`

const telephoneShortDesc string = "Telephone - LLM introspection by iterated distillation"

func NewTelephoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telephone",
		Short: telephoneShortDesc,
		Long:  telephoneLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .telephone/ config directory")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(contextscmder.NewContextsCmd())
	cmd.AddCommand(reportcmder.NewReportCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
