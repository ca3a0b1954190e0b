package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nautilus/internal/model"
)

var gravityCmd = &cobra.Command{
	Use:   "gravity",
	Short: "Inspect and adjust per-chunk importance",
}

var gravityBoostCmd = &cobra.Command{
	Use:   "boost <path> <amount> [line-start] [line-end]",
	Short: "Add amount to a chunk's explicit_importance",
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		key, err := parseChunkKey(args[0], args[2:])
		if err != nil {
			return err
		}
		return engine.Boost(key, amount)
	},
}

var gravityDecayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply importance decay to inactive chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := engine.Decay()
		if err != nil {
			return err
		}
		fmt.Printf("decayed %d chunks\n", n)
		return nil
	},
}

var gravityRecordWriteCmd = &cobra.Command{
	Use:   "record-write <path>",
	Short: "Mark a memory file as freshly written",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.RecordWrite(args[0])
	},
}

func parseChunkKey(path string, lineArgs []string) (model.ChunkKey, error) {
	key := model.ChunkKey{Path: path}
	if len(lineArgs) > 0 {
		start, err := strconv.Atoi(lineArgs[0])
		if err != nil {
			return key, fmt.Errorf("invalid line-start %q: %w", lineArgs[0], err)
		}
		key.LineStart = start
	}
	if len(lineArgs) > 1 {
		end, err := strconv.Atoi(lineArgs[1])
		if err != nil {
			return key, fmt.Errorf("invalid line-end %q: %w", lineArgs[1], err)
		}
		key.LineEnd = end
	}
	return key, nil
}

func init() {
	gravityCmd.AddCommand(gravityBoostCmd, gravityDecayCmd, gravityRecordWriteCmd)
}
