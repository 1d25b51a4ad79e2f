package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/program"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newBlockCommand())
}

func newBlockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "block",
		Aliases: []string{"blocks"},
		Short:   "Edit the blocks of a stored program",
	}
	cmd.AddCommand(
		newBlockAddCommand(),
		newBlockRemoveCommand(),
		newBlockMoveCommand(),
		newBlockDuplicateCommand(),
		newBlockSetCommand(),
	)
	return cmd
}

func newBlockAddCommand() *cobra.Command {
	var at int
	var data string

	cmd := &cobra.Command{
		Use:   "add <program-id> <type>",
		Short: "Add a block (role, task, context, constraints, tone, output_format, examples)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := block.ParseType(args[1])
			if !ok {
				return fmt.Errorf("%w: %q", program.ErrUnknownType, args[1])
			}
			var added string
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				out, id, err := program.AddBlock(p, t, at)
				if err != nil {
					return p, err
				}
				added = id
				if data != "" {
					return program.UpdateBlockJSON(out, id, json.RawMessage(data))
				}
				return out, nil
			}, func(p program.Program) string {
				return fmt.Sprintf("Added %s block %s", t, added)
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&at, "at", -1, "Insert position (default: append)")
	cmd.Flags().StringVar(&data, "data", "", "Initial block data as a JSON object")
	return cmd
}

func newBlockRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <program-id> <block-id>",
		Short: "Remove a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				return program.RemoveBlock(p, args[1])
			}, func(program.Program) string {
				return fmt.Sprintf("Removed block %s", args[1])
			}, cmd.OutOrStdout())
		},
	}
}

func newBlockMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <program-id> <block-id> <position>",
		Short: "Move a block to a new position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[2], err)
			}
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				return program.MoveBlock(p, args[1], to)
			}, func(p program.Program) string {
				return fmt.Sprintf("Moved block %s to position %d", args[1], p.IndexOf(args[1]))
			}, cmd.OutOrStdout())
		},
	}
}

func newBlockDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <program-id> <block-id>",
		Short: "Copy a block right after itself",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var added string
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				out, id, err := program.DuplicateBlock(p, args[1])
				added = id
				return out, err
			}, func(program.Program) string {
				return fmt.Sprintf("Duplicated block %s as %s", args[1], added)
			}, cmd.OutOrStdout())
		},
	}
}

func newBlockSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <program-id> <block-id> <json>",
		Short: "Replace a block's data with a JSON object",
		Example: `  promptblocks block set <program-id> <block-id> '{"role":"senior editor"}'
  promptblocks block set <program-id> <block-id> '{"items":["Be concise","Cite sources"]}'
  promptblocks block set <program-id> <block-id> '{"format":"json","schema":"{\"type\":\"object\"}"}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage(args[2])
			if !json.Valid(raw) {
				return fmt.Errorf("block data is not valid JSON")
			}
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				return program.UpdateBlockJSON(p, args[1], raw)
			}, func(p program.Program) string {
				b, _ := p.Block(args[1])
				return fmt.Sprintf("Updated block %s: %s", args[1], block.Summary(b))
			}, cmd.OutOrStdout())
		},
	}
}
