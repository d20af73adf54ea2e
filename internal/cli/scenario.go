package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/harness"
)

// ScenarioOutcome is the JSON payload for one scenario file.
type ScenarioOutcome struct {
	File   string   `json:"file"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run scripted selection scenarios",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run <file>...",
		Short: "Run scenario files and report failures",
		Long: `Run each scenario against its catalog with a fresh in-memory snapshot
store and report step and assertion failures.

Exit codes:
  0 - All scenarios passed
  1 - At least one scenario failed
  2 - A scenario could not be loaded or started`,
		Example: `  loadout scenario run testdata/scenarios/*.yaml`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, rootOpts, args)
		},
	})
	return cmd
}

func runScenarios(cmd *cobra.Command, rootOpts *RootOptions, files []string) error {
	f := newFormatter(rootOpts, cmd)

	outcomes := make([]ScenarioOutcome, 0, len(files))
	failed := 0
	for _, file := range files {
		s, err := harness.LoadScenario(file)
		if err != nil {
			return f.fail("load scenario", fmt.Errorf("%w: %s: %v", errInvalidInput, file, err))
		}
		f.VerboseLog("running %s (%s)", s.Name, file)

		result, err := harness.Run(cmd.Context(), s)
		if err != nil {
			return f.fail("run scenario", fmt.Errorf("%w: %s: %v", errInvalidInput, file, err))
		}
		if !result.Pass {
			failed++
		}
		outcomes = append(outcomes, ScenarioOutcome{File: file, Name: s.Name, Pass: result.Pass, Errors: result.Errors})
	}

	if f.Format == "json" {
		if err := f.Success(outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			status := text.FgGreen.Sprint("PASS")
			if !o.Pass {
				status = text.FgRed.Sprint("FAIL")
			}
			fmt.Fprintf(f.Writer, "%s %s (%s)\n", status, o.Name, o.File)
			for _, e := range o.Errors {
				fmt.Fprintf(f.Writer, "    %s\n", e)
			}
		}
		fmt.Fprintf(f.Writer, "%d passed, %d failed\n", len(outcomes)-failed, failed)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}
