package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	integrityFix  bool
	integrityJSON bool
)

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the remote, snapshot storage and run history",
	Long:  `Verifies that PocketBase is reachable, that the snapshot bucket exists and that the run history tables are complete.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := setup(ctx, nil)
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		svc := e.integrity()

		results := map[string]any{}
		healthy := true

		remote, err := svc.CheckRemote(ctx)
		if err != nil {
			healthy = false
			results["remote"] = map[string]string{"status": "error", "error": err.Error()}
		} else {
			results["remote"] = remote
		}
		if !integrityJSON {
			if err != nil {
				fmt.Printf("%s remote: %v\n", red("✗"), err)
			} else if len(remote.Missing) > 0 {
				fmt.Printf("%s remote: %d collections, missing %s\n", yellow("!"), remote.Collections, strings.Join(remote.Missing, ", "))
			} else {
				fmt.Printf("%s remote: %d collections\n", green("✓"), remote.Collections)
			}
		}

		if integrityFix {
			if err := svc.FixStorage(ctx); err != nil && !integrityJSON {
				fmt.Printf("%s storage fix: %v\n", red("✗"), err)
			}
		}
		store, err := svc.CheckStorage(ctx)
		if err != nil {
			results["storage"] = map[string]string{"status": "error", "error": err.Error()}
		} else {
			results["storage"] = store
			if !store.Exists {
				healthy = false
			}
		}
		if !integrityJSON {
			switch {
			case err != nil:
				fmt.Printf("%s storage: %v\n", faint("-"), err)
			case !store.Exists:
				fmt.Printf("%s storage: bucket %s does not exist (use --fix)\n", red("✗"), store.Bucket)
			default:
				fmt.Printf("%s storage: bucket %s, %d snapshots\n", green("✓"), store.Bucket, store.Snapshots)
			}
		}

		hist, err := svc.CheckHistory()
		if err != nil {
			results["history"] = map[string]string{"status": "error", "error": err.Error()}
		} else {
			results["history"] = hist
			if !hist.Matched {
				healthy = false
			}
		}
		if !integrityJSON {
			switch {
			case err != nil:
				fmt.Printf("%s history: %v\n", faint("-"), err)
			case !hist.Matched:
				fmt.Printf("%s history: tables incomplete on %s\n", red("✗"), hist.Driver)
			default:
				fmt.Printf("%s history: %s tables ok\n", green("✓"), hist.Driver)
			}
		}

		if integrityJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		}
		if !healthy {
			return fmt.Errorf("integrity checks failed")
		}
		return nil
	},
}

func init() {
	integrityCmd.Flags().BoolVar(&integrityFix, "fix", false, "Create the snapshot bucket when missing")
	integrityCmd.Flags().BoolVar(&integrityJSON, "json", false, "Print the combined report as JSON")

	RootCmd.AddCommand(integrityCmd)
}
