package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/compiler"
	"github.com/kayz/promptblocks/internal/config"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/kayz/promptblocks/internal/program"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newProgramCommand())
}

func newProgramCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "program",
		Aliases: []string{"programs"},
		Short:   "Manage stored programs",
	}
	cmd.AddCommand(
		newProgramListCommand(),
		newProgramCreateCommand(),
		newProgramShowCommand(),
		newProgramRenameCommand(),
		newProgramDuplicateCommand(),
		newProgramDeleteCommand(),
	)
	return cmd
}

func newProgramListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List programs, most recently edited first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				programs, err := store.List()
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), programs)
				}
				if len(programs) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No programs yet. Create one with `promptblocks program create <name>`.")
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tBLOCKS\tUPDATED")
				for _, p := range programs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Category, len(p.Blocks), p.UpdatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render output as JSON")
	return cmd
}

func newProgramCreateCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an empty program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return withStore(func(_ *config.Config, store *persist.Store) error {
				saved, err := store.Put(program.New(name, category, time.Now()))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created program %s (%s)\n", saved.ID, saved.Name)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Program category (default: "+program.DefaultCategory+")")
	return cmd
}

func newProgramShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a program's blocks and compiled prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				p, err := store.Get(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), p)
				}
				return printProgram(cmd.OutOrStdout(), *p)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render output as JSON")
	return cmd
}

func newProgramRenameCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a program or change its category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProgram(args[0], func(p program.Program) (program.Program, error) {
				return program.Rename(p, args[1], category), nil
			}, func(p program.Program) string {
				return fmt.Sprintf("Renamed program %s to %q (%s)", p.ID, p.Name, p.Category)
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "New category (default: unchanged)")
	return cmd
}

func newProgramDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a program under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				p, err := store.Get(args[0])
				if err != nil {
					return err
				}
				saved, err := store.Put(program.Duplicate(*p, time.Now()))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created program %s (%s)\n", saved.ID, saved.Name)
				return err
			})
		},
	}
}

func newProgramDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				if _, err := store.Get(args[0]); err != nil {
					return err
				}
				if err := store.Delete(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted program %s\n", args[0])
				return err
			})
		},
	}
}

// editProgram loads program id, applies edit and stores the result.
func editProgram(id string, edit func(program.Program) (program.Program, error), describe func(program.Program) string, out io.Writer) error {
	return withStore(func(_ *config.Config, store *persist.Store) error {
		p, err := store.Get(id)
		if err != nil {
			return err
		}
		next, err := edit(*p)
		if err != nil {
			return err
		}
		saved, err := store.Put(next)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, describe(saved))
		return err
	})
}

func printProgram(w io.Writer, p program.Program) error {
	fmt.Fprintf(w, "%s  %s  [%s]\n", p.ID, p.Name, p.Category)
	if len(p.Blocks) == 0 {
		fmt.Fprintln(w, "\n(no blocks)")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, b := range p.Blocks {
		label := string(b.Type)
		if meta, ok := block.Describe(b.Type); ok {
			label = meta.Label
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, b.ID, label, block.Summary(b))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	prompt := compiler.Compile(p.Blocks)
	fmt.Fprintf(w, "\n%s\n%s\n", strings.Repeat("-", 40), prompt)
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
