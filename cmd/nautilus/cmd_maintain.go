package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"nautilus/internal/maintain"
)

var (
	maintainRegisterRecent bool
	maintainPromote        bool
	maintainDryRun         bool
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run the periodic upkeep batch: classify, tag, decay, link, promote",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := engine.Maintain(cmd.Context(), maintain.Options{
			RegisterRecentWrites: maintainRegisterRecent,
			Promote:              maintainPromote,
			DryRun:               maintainDryRun,
		})

		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		for _, step := range report.Steps {
			status := "ok"
			if step.Err != nil {
				status = fmt.Sprintf("FAILED: %v", step.Err)
			}
			fmt.Printf("%-24s %-6d %-10v %s\n", step.Name, step.Count, step.Elapsed, status)
		}
		if report.Failed() {
			return fmt.Errorf("one or more maintenance steps failed")
		}
		return nil
	},
}

func init() {
	maintainCmd.Flags().BoolVar(&maintainRegisterRecent, "register-recent", true, "Record last_written_at for recently modified files first")
	maintainCmd.Flags().BoolVar(&maintainPromote, "promote", false, "Also run corridor promotion and vault crystallization")
	maintainCmd.Flags().BoolVar(&maintainDryRun, "dry-run", false, "List promotion/crystallization candidates without writing")
}
