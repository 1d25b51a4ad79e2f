package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newLibraryCommand())
}

func newLibraryCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List the available block types",
		RunE: func(cmd *cobra.Command, args []string) error {
			metas := block.Library()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), metas)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tLABEL\tDESCRIPTION")
			for _, m := range metas {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Type, m.Label, m.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render output as JSON")
	return cmd
}
