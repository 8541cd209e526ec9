// Package reportcmder provides the report command for rendering a saved
// experiment run.
package reportcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhoadesScholar/llm-experiments/pkg/cliui"
	"github.com/rhoadesScholar/llm-experiments/pkg/config"
	"github.com/rhoadesScholar/llm-experiments/pkg/dotdir"
	"github.com/rhoadesScholar/llm-experiments/pkg/report"
	resultsutils "github.com/rhoadesScholar/llm-experiments/pkg/results/utils"
)

const reportLongDesc string = `Render a saved experiment run.

Loads the run, its per-context records, and the pairwise judgments from the
configured results store and renders them as a markdown report. When no run
ID is given, the most recently completed run is used.

Examples:
  telephone report
  telephone report 6a1f0c1e-9f3d-4a8f-b6f2-0c9a4f6e2d71
  telephone report --json
  telephone report --out report.md`

const reportShortDesc string = "Render a saved experiment run"

type reportCommander struct {
	jsonOut bool
	outPath string

	configDir string
}

func NewReportCmd() *cobra.Command {
	cmder := &reportCommander{}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: reportShortDesc,
		Long:  reportLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}

			return cmder.run(cmd, runID)
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Emit the report as JSON instead of markdown")
	cmd.Flags().StringVarP(&cmder.outPath, "out", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func (c *reportCommander) run(cmd *cobra.Command, runID string) error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if runID == "" {
		runID, err = c.lastRunID()
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	store, err := resultsutils.NewStore(ctx, &resultsutils.NewStoreOpts{
		ProviderType: cfg.Results.Provider,
		SQLitePath:   cfg.Results.SQLitePath,
		PostgresDSN:  cfg.Results.PostgresDSN,
		ConfigDir:    c.configDir,
	})
	if err != nil {
		return fmt.Errorf("opening results store: %w", err)
	}
	defer store.Close()

	run, err := store.Run(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", runID, err)
	}

	records, err := store.Records(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading records for run %s: %w", runID, err)
	}

	judgments, err := store.Judgments(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading judgments for run %s: %w", runID, err)
	}

	rpt := report.New(run, records, judgments)

	var out []byte
	if c.jsonOut {
		out, err = rpt.JSON()
		if err != nil {
			return err
		}
	} else {
		out = []byte(rpt.Markdown())
	}

	if c.outPath != "" {
		if err := os.WriteFile(c.outPath, out, 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("  %s Wrote report to %s\n", cliui.SuccessMark, c.outPath)
		return nil
	}

	if c.jsonOut {
		fmt.Println(string(out))
		return nil
	}

	rendered, err := cliui.RenderMarkdown(string(out))
	if err != nil {
		// Fall back to the raw markdown when the terminal renderer fails.
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(rendered)
	return nil
}

// lastRunID resolves the most recent run from the .telephone/ marker.
func (c *reportCommander) lastRunID() (string, error) {
	ddm := dotdir.NewManager()
	state, err := ddm.LoadLastRun(c.configDir)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", fmt.Errorf("no run ID given and no previous run recorded; run \"telephone run\" first")
	}
	return state.RunID, nil
}
