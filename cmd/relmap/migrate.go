package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql/schema"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	var (
		dryRun      bool
		foreignKeys bool
	)
	var st *storage
	cmd := &cobra.Command{
		Use:   "migrate <schema>",
		Short: "Create missing tables and columns of a schema in a SQL database",
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
			drv, err := st.sqlDriver()
			if err != nil {
				return err
			}
			defer drv.Close()
			m := schema.NewMigrate(drv,
				schema.WithTableOptions(schema.WithForeignKeys(foreignKeys)),
				schema.WithLogger(c.log),
			)
			changes, err := m.Diff(cmd.Context(), s)
			if err != nil {
				return err
			}
			for _, ch := range changes {
				fmt.Fprintln(cmd.OutOrStdout(), schema.Describe(ch))
			}
			if dryRun || len(changes) == 0 {
				return nil
			}
			return m.Create(cmd.Context(), s)
		},
	}
	st = c.storageFlags(cmd, dialect.SQLite, dialect.Postgres, dialect.MySQL)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned changes without applying them")
	cmd.Flags().BoolVar(&foreignKeys, "foreign-keys", true, "Create foreign keys for links")
	return cmd
}
