package cmd

import (
	"fmt"
	"os"

	"schema-manager/core/config"

	"github.com/spf13/cobra"
)

var (
	// Flags for the ensure command
	ensureDryRun bool
	ensureYes    bool
	ensureFile   string
)

// ensureCmd applies additive adjustments to existing collections.
var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Apply additive adjustments to existing collections",
	Long: `Adds missing fields and indexes, flips required flags and sets declared rules on
collections that already exist. Nothing is removed and absent collections are reported, not created.`,
	RunE: runEnsure,
}

func init() {
	ensureCmd.Flags().BoolVar(&ensureDryRun, "dry-run", false, "Plan only, never write")
	ensureCmd.Flags().BoolVar(&ensureYes, "yes", false, "Apply without interactive confirmation")
	ensureCmd.Flags().StringVar(&ensureFile, "file", "", "Adjustments file (overrides SCHEMA_ADJUSTMENTS_PATH)")

	RootCmd.AddCommand(ensureCmd)
}

func runEnsure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setup(ctx, func(cfg *config.Config) {
		if ensureFile != "" {
			cfg.Schema.AdjustmentsPath = ensureFile
		}
	})
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	plan, err := e.service.Ensure(ctx, true)
	if err != nil {
		return err
	}
	printReport(os.Stdout, plan)

	if ensureDryRun || !pending(plan) {
		return failedErr(plan)
	}

	ok, err := confirm(fmt.Sprintf("Adjust collections on %s?", e.cfg.PocketBase.URL), ensureYes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(yellow("Aborted, nothing was written."))
		return nil
	}

	report, err := e.service.Ensure(ctx, false)
	if err != nil {
		return err
	}
	fmt.Println()
	printReport(os.Stdout, report)
	return failedErr(report)
}
