package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zzguang83325/ckorm"
)

var (
	genOut    string
	genStruct string
	genPkg    string
	genKey    string
)

var genCmd = &cobra.Command{
	Use:   "gen <table>",
	Short: "Generate an entity struct from a table's column layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := ckorm.GenerateOptions{Package: genPkg, StructName: genStruct, PrimaryKey: genKey}
		if genOut == "-" {
			src, err := db.GenerateEntity(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(src)
			return err
		}
		path, err := db.GenerateEntityFile(cmd.Context(), args[0], genOut, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "output .go file or directory, - for stdout (default models/<table>.go)")
	genCmd.Flags().StringVar(&genStruct, "struct", "", "struct name (default derived from the table name)")
	genCmd.Flags().StringVar(&genPkg, "package", "", "package name (default the output directory name)")
	genCmd.Flags().StringVar(&genKey, "pk", "", "column to tag as primary key")
}
