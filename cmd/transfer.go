package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/promptblocks/internal/config"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newImportCommand(), newExportCommand())
}

func newImportCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import programs from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				var (
					n   int
					err error
				)
				if migrate {
					n, err = store.MigrateFromJSON(args[0])
				} else {
					var data []byte
					data, err = os.ReadFile(args[0])
					if err != nil {
						return fmt.Errorf("read %s: %w", args[0], err)
					}
					n, err = store.ImportJSON(data)
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d programs\n", n)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Rename the file to .bak after a successful import")
	return cmd
}

func newExportCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all programs as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, store *persist.Store) error {
				data, err := store.ExportJSON()
				if err != nil {
					return err
				}
				if outputPath == "" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "", "Write output to file (default: stdout)")
	return cmd
}
