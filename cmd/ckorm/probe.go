package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <table>",
	Short: "Print the column layout batch inserts use for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := db.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCOLUMN\tTYPE\tKIND")
		for _, c := range ci.Columns {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Ordinal, c.Name, c.TypeName, c.Kind)
		}
		return tw.Flush()
	},
}
