package cmd

import (
	"fmt"
	"os"

	"schema-manager/feature/schema/snapshot"

	"github.com/spf13/cobra"
)

var (
	// Flags for the dump command
	dumpOut    string
	dumpUpload bool
	dumpName   string
	dumpSystem bool
)

// dumpCmd writes the remote schema in definition form.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the remote schema as a definition",
	Long: `Reads every collection from the remote and writes it in definition form, with webhook
secrets in rules replaced by the placeholder. Without --out or --upload the dump is printed.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpOut, "out", "", "Write the dump to this file")
	dumpCmd.Flags().BoolVar(&dumpUpload, "upload", false, "Upload the dump to the snapshot bucket")
	dumpCmd.Flags().StringVar(&dumpName, "name", "", "Snapshot name when uploading (default schema_<timestamp>)")
	dumpCmd.Flags().BoolVar(&dumpSystem, "system", false, "Include system collections")

	RootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if dumpUpload {
		key, err := e.service.SaveSnapshot(ctx, dumpName)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s %s/%s\n", green("uploaded"), e.cfg.Storage.Bucket, key)
	}

	if dumpOut == "" && dumpUpload {
		return nil
	}

	def, err := e.service.Dump(ctx, dumpSystem)
	if err != nil {
		return err
	}

	if dumpOut == "" {
		data, err := snapshot.Encode(def)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := snapshot.WriteFile(dumpOut, def); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %d collections to %s\n", green("wrote"), len(def), dumpOut)
	return nil
}
