package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchN        int
	searchTrapdoor bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the retrieval pipeline and print ranked results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := engine.Search(cmd.Context(), args[0], searchN, searchTrapdoor)
		if err != nil {
			return err
		}

		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s:%d-%d  score=%.4f  chamber=%s\n", i+1, r.Path, r.LineStart, r.LineEnd, r.Score, r.Chamber)
			if r.Snippet != "" {
				fmt.Printf("   %s\n", r.Snippet)
			}
			if r.Mirrors != nil {
				for _, m := range r.Mirrors.Mirrors {
					fmt.Printf("   mirror(%s): %s\n", m.Granularity, m.Path)
				}
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchN, "n", "n", 10, "Number of results to return")
	searchCmd.Flags().BoolVar(&searchTrapdoor, "trapdoor", false, "Bypass context classification and filtering")
}
