package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the engine's persisted state",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := engine.Status()
		if err != nil {
			return err
		}
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Printf("chunks:        %d (%d tagged)\n", stats.ChunkCount, stats.TaggedChunkCount)
		fmt.Printf("access log:    %d rows\n", stats.AccessLogCount)
		fmt.Printf("mirrors:       %d\n", stats.MirrorCount)
		for chamber, n := range stats.ChamberCounts {
			fmt.Printf("  %-10s %d\n", chamber, n)
		}
		fmt.Printf("database:      %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		return nil
	},
}
