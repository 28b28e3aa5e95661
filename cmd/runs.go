package cmd

import (
	"fmt"
	"os"

	"schema-manager/core/reconcile"
	"schema-manager/feature/schema/history"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd lists recorded runs, or shows one run in detail.
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show recorded apply and ensure runs",
	Long:  `Lists recent runs from the history database. With a run id, prints that run's per-collection results.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to list")

	RootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if len(args) == 1 {
		run, err := e.service.Run(ctx, args[0])
		if err != nil {
			return err
		}
		printReport(os.Stdout, toReport(run))
		return nil
	}

	runs, err := e.service.Runs(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(faint("No runs recorded."))
		return nil
	}
	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = yellow(" (dry run)")
		}
		failed := green("0 failed")
		if run.Failed > 0 {
			failed = red(fmt.Sprintf("%d failed", run.Failed))
		}
		fmt.Printf("%s  %s  %-9s %2d collections, %s%s\n",
			faint(run.StartedAt.Local().Format("2006-01-02 15:04:05")),
			cyan(run.RunID), run.Kind, run.Total, failed, mode)
	}
	return nil
}

func toReport(run *history.Run) *reconcile.Report {
	report := &reconcile.Report{
		RunID:      run.RunID,
		Kind:       run.Kind,
		DryRun:     run.DryRun,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	for _, rc := range run.Collections {
		report.Results = append(report.Results, rc.Result())
	}
	return report
}
