package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var doorsCmd = &cobra.Command{
	Use:   "doors",
	Short: "Classify text into context tags and re-tag memory files",
}

var doorsClassifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Print the context tags matched by some text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags := engine.ClassifyQuery(strings.Join(args, " "))
		if len(tags) == 0 {
			fmt.Println("no tags matched")
			return nil
		}
		for _, tag := range tags {
			fmt.Println(tag)
		}
		return nil
	},
}

var doorsAutoTagCmd = &cobra.Command{
	Use:   "auto-tag",
	Short: "Re-tag every known chunk from its file contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := engine.AutoTag()
		if err != nil {
			return err
		}
		fmt.Printf("tagged %d chunks\n", n)
		return nil
	},
}

func init() {
	doorsCmd.AddCommand(doorsClassifyCmd, doorsAutoTagCmd)
}
