package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Prune stale access-log rows and orphaned chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := engine.Vacuum()
		if err != nil {
			return err
		}
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Printf("access_log rows deleted: %d\n", report.AccessLogRowsDeleted)
		fmt.Printf("orphan chunks deleted:   %d\n", report.OrphanChunksDeleted)
		return nil
	},
}
