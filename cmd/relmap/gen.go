package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/compiler/gen"
)

func (c *cli) newGenCmd() *cobra.Command {
	var out, pkg string
	cmd := &cobra.Command{
		Use:   "gen <schema>",
		Short: "Generate Go constants for the tables and fields of a schema",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrInvalidNumberOfArguments
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.compile(args[0])
			if err != nil {
				return err
			}
			path, err := gen.WriteFile(s, out, pkg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&pkg, "package", "p", "layout", "Package name of the generated file")
	return cmd
}
