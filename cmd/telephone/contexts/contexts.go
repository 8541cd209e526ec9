// Package contextscmder provides the contexts command for listing the
// priming contexts an experiment runs under.
package contextscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhoadesScholar/llm-experiments/pkg/cliui"
	"github.com/rhoadesScholar/llm-experiments/pkg/contexts"
	"github.com/rhoadesScholar/llm-experiments/pkg/utils"
)

const contextsLongDesc string = `List the priming contexts.

Each experiment run repeats the distillation loop once per context. The
isolation context has no priming text; the others frame the model as either
embodied or an AI assistant, with positive, neutral, or negative valence.

Examples:
  telephone contexts
  telephone contexts --full`

const contextsShortDesc string = "List the priming contexts"

type contextsCommander struct {
	full bool
}

func NewContextsCmd() *cobra.Command {
	cmder := &contextsCommander{}

	cmd := &cobra.Command{
		Use:   "contexts",
		Short: contextsShortDesc,
		Long:  contextsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.full, "full", false, "Show the full prompt text for each context")

	return cmd
}

func (c *contextsCommander) run() error {
	all := contexts.All()

	fmt.Printf("\n%s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d priming contexts", len(all))))

	for _, cc := range all {
		fmt.Printf("  %s\n", cliui.KeyStyle.Render(cc.Name))
		fmt.Printf("    %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("category=%s valence=%s", cc.Category, cc.Valence)))

		if cc.IsNull() {
			fmt.Printf("    %s\n\n", cliui.DimStyle.Render("(no priming text)"))
			continue
		}

		prompt := cc.PromptText
		if !c.full {
			prompt = utils.Truncate(prompt, 80)
		}
		fmt.Printf("    %s\n\n", cliui.ValueStyle.Render(prompt))
	}

	return nil
}
