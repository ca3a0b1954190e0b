package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var mirrorsCmd = &cobra.Command{
	Use:   "mirrors",
	Short: "Link and resolve raw/summary/lesson siblings of the same event",
}

var (
	mirrorEventKey string
	mirrorRaw      string
	mirrorSummary  string
	mirrorLesson   string
)

var mirrorsLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link up to three granularities under one event key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := mirrorEventKey
		if key == "" {
			key = "event-" + uuid.NewString()
		}
		if err := engine.LinkMirrors(key, mirrorRaw, mirrorSummary, mirrorLesson); err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

var mirrorsResolveCmd = &cobra.Command{
	Use:   "resolve <path-or-event-key>",
	Short: "Print every sibling granularity of a path or event key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := engine.ResolveMirrors(args[0])
		if err != nil {
			return err
		}
		fmt.Println(resolved.EventKey)
		for _, m := range resolved.Mirrors {
			fmt.Printf("  %-8s %s\n", m.Granularity, m.Path)
		}
		return nil
	},
}

var mirrorsAutoLinkCmd = &cobra.Command{
	Use:   "auto-link",
	Short: "Link corridor/vault summaries back to their daily notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := engine.AutoLinkMirrors()
		if err != nil {
			return err
		}
		fmt.Printf("linked %d events\n", n)
		return nil
	},
}

func init() {
	mirrorsLinkCmd.Flags().StringVar(&mirrorEventKey, "event-key", "", "Event key to link under (generated if omitted)")
	mirrorsLinkCmd.Flags().StringVar(&mirrorRaw, "raw", "", "Raw granularity path")
	mirrorsLinkCmd.Flags().StringVar(&mirrorSummary, "summary", "", "Summary granularity path")
	mirrorsLinkCmd.Flags().StringVar(&mirrorLesson, "lesson", "", "Lesson granularity path")

	mirrorsCmd.AddCommand(mirrorsLinkCmd, mirrorsResolveCmd, mirrorsAutoLinkCmd)
}
