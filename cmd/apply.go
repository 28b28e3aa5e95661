package cmd

import (
	"fmt"
	"os"

	"schema-manager/core/config"
	schemafeature "schema-manager/feature/schema"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the apply command
	applyDryRun      bool
	applyYes         bool
	applyNoBackup    bool
	applySnapshot    bool
	applyDefinitions string
)

// applyCmd reconciles the remote towards the definition file.
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile PocketBase collections towards the definition",
	Long: `Plans every collection of the definition against the remote, prints the changes and,
after confirmation, creates absent collections and patches drifted ones.

A backup named pre_provision_<timestamp> is taken before the first write unless --no-backup is set.
The settings file (SCHEMA_SETTINGS_PATH) is then sent to the remote when it exists.

Examples:
  # Show what would change
  schema-manager apply --dry-run

  # Apply without prompting, uploading a snapshot first
  schema-manager apply --yes --snapshot`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Plan only, never write")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "Apply without interactive confirmation")
	applyCmd.Flags().BoolVar(&applyNoBackup, "no-backup", false, "Skip the remote backup before writing")
	applyCmd.Flags().BoolVar(&applySnapshot, "snapshot", false, "Upload a snapshot of the remote schema before writing")
	applyCmd.Flags().StringVar(&applyDefinitions, "definitions", "", "Definition file (overrides SCHEMA_DEFINITIONS_PATH)")

	RootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setup(ctx, func(cfg *config.Config) {
		if applyDefinitions != "" {
			cfg.Schema.DefinitionsPath = applyDefinitions
		}
	})
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	e.logger.Info("Planning schema", zap.String("definitions", e.cfg.Schema.DefinitionsPath), zap.String("remote", e.cfg.PocketBase.URL))

	plan, err := e.service.Plan(ctx)
	if err != nil {
		return err
	}
	printReport(os.Stdout, plan)

	if applyDryRun {
		return failedErr(plan)
	}
	if !pending(plan) {
		fmt.Println(green("Schema is up to date."))
		return failedErr(plan)
	}

	def, err := e.service.Definition()
	if err != nil {
		return err
	}

	ok, err := confirm(fmt.Sprintf("Apply changes to %s?", e.cfg.PocketBase.URL), applyYes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(yellow("Aborted, nothing was written."))
		return nil
	}

	report, err := e.service.ApplyDefinition(ctx, def, schemafeature.ApplyOptions{
		Backup:   !applyNoBackup,
		Snapshot: applySnapshot,
	})
	if err != nil {
		return err
	}
	fmt.Println()
	printReport(os.Stdout, report)
	return failedErr(report)
}
