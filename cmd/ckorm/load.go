package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzguang83325/ckorm"
)

var loadCmd = &cobra.Command{
	Use:   "load <table> <file.jsonl>",
	Short: "Batch insert JSON lines into a table",
	Long: `Load reads one JSON object per line ("-" reads stdin) and inserts them
with the batch executor. The columns are the keys of the first object, in
the order they appear.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		rows, err := readJSONLines(in)
		if err != nil {
			return err
		}
		res, err := db.BatchInsertRows(cmd.Context(), args[0], rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d rows in %d flushes (%s, batch %s)\n",
			res.Rows, res.Flushes, res.Duration, res.BatchID)
		return nil
	},
}

// readJSONLines 逐行解析 JSON 对象，跳过空行
func readJSONLines(r io.Reader) ([]*ckorm.Row, error) {
	var rows []*ckorm.Row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		row := ckorm.NewRow()
		if err := row.UnmarshalJSON([]byte(text)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
