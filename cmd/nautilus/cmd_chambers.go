package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"nautilus/internal/chambers"
)

var chambersCmd = &cobra.Command{
	Use:   "chambers",
	Short: "Classify and migrate memory files between temporal chambers",
}

var chambersClassifyCmd = &cobra.Command{
	Use:   "classify-all",
	Short: "Reclassify every memory file's chamber by age",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := engine.ClassifyAll()
		if err != nil {
			return err
		}
		fmt.Printf("classified %d files\n", n)
		return nil
	},
}

var chambersDryRun bool

var chambersPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Summarize corridor-chamber files into memory/corridors",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := engine.Promote(cmd.Context(), chambersDryRun)
		if err != nil {
			return err
		}
		return printPromoteReport(cmd, report)
	},
}

var chambersCrystallizeCmd = &cobra.Command{
	Use:   "crystallize",
	Short: "Summarize vault-chamber files into memory/vaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := engine.Crystallize(cmd.Context(), chambersDryRun)
		if err != nil {
			return err
		}
		return printPromoteReport(cmd, report)
	},
}

func printPromoteReport(cmd *cobra.Command, report chambers.PromoteReport) error {
	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Printf("%+v\n", report)
	return nil
}

func init() {
	chambersPromoteCmd.Flags().BoolVar(&chambersDryRun, "dry-run", false, "List candidates without writing")
	chambersCrystallizeCmd.Flags().BoolVar(&chambersDryRun, "dry-run", false, "List candidates without writing")
	chambersCmd.AddCommand(chambersClassifyCmd, chambersPromoteCmd, chambersCrystallizeCmd)
}
