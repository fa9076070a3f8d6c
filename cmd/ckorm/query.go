// Query, exec and count commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql> [args...]",
	Short: "Run a SELECT and print the rows as JSON",
	Long: `Query runs a SELECT with positional ? arguments and prints every row
as a JSON object, one per line, in result column order.

Example:
  ckorm query "SELECT id, name FROM events WHERE day = ?" 2024-01-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := db.SelectListAsMaps(cmd.Context(), args[0], stringArgs(args[1:])...)
		if err != nil {
			return err
		}
		return writeJSONLines(cmd.OutOrStdout(), rows)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <sql> [args...]",
	Short: "Run a statement and print the affected row count",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := db.Execute(cmd.Context(), args[0], stringArgs(args[1:])...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count <table> [where] [args...]",
	Short: "Count the rows of a table",
	Long: `Count prints SELECT COUNT(*) of the table. The optional where fragment
is appended verbatim, e.g.

  ckorm count events "WHERE day = ?" 2024-01-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		where := ""
		if len(args) > 1 {
			where = args[1]
		}
		var params []interface{}
		if len(args) > 2 {
			params = stringArgs(args[2:])
		}
		n, err := db.Count(cmd.Context(), args[0], where, params...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
		return nil
	},
}

func stringArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func writeJSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	return nil
}
