package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/propset"
	"github.com/syssam/relmap/session"
)

var storageDrivers = []string{dialect.Bolt, dialect.SQLite, dialect.Postgres, dialect.MySQL, dialect.CQL}

func (c *cli) newGetCmd() *cobra.Command {
	var (
		props string
		st    *storage
	)
	cmd := &cobra.Command{
		Use:   "get <schema> <class> <key>",
		Short: "Fetch an entity by its JSON encoded key and print it as JSON",
		Example: `  relmap get shop.yaml Item '{"order":{"id":123},"product":{"code":"123"}}' \
    --driver sqlite --dsn shop.db --props 'order{*},price'`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 3 {
				return ErrInvalidNumberOfArguments
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := propset.Parse(props)
			if err != nil {
				return err
			}
			key, err := decodeEntity(args[2])
			if err != nil {
				return err
			}
			sess, release, err := st.session(args[0])
			if err != nil {
				return err
			}
			defer release()
			e, err := sess.Get(cmd.Context(), args[1], key, ps)
			if err != nil {
				return err
			}
			return encodeEntity(cmd.OutOrStdout(), e)
		},
	}
	st = c.storageFlags(cmd, storageDrivers...)
	cmd.Flags().StringVar(&props, "props", "", "Properties to fetch, e.g. 'a,b{*}'; empty for the stored properties")
	cmd.Flags().IntVar(&st.cacheSize, "cache-size", 0, "Number of rows kept in an LRU cache in front of the storage; 0 disables it")
	cmd.Flags().DurationVar(&st.cacheTTL, "cache-ttl", 0, "Lifetime of cached rows; 0 keeps them until evicted")
	return cmd
}

func (c *cli) newInsertCmd() *cobra.Command {
	var st *storage
	cmd := &cobra.Command{
		Use:   "insert <schema> <class> <entity>",
		Short: "Insert a JSON encoded entity",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 3 {
				return ErrInvalidNumberOfArguments
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := decodeEntity(args[2])
			if err != nil {
				return err
			}
			sess, release, err := st.session(args[0])
			if err != nil {
				return err
			}
			defer release()
			return sess.Insert(cmd.Context(), args[1], values)
		},
	}
	st = c.storageFlags(cmd, storageDrivers...)
	return cmd
}

// session compiles the schema at path and opens a session on the storage
// selected by the flags.
func (c *storage) session(path string) (*session.Session, func(), error) {
	s, err := c.compile(path)
	if err != nil {
		return nil, nil, err
	}
	a, release, err := c.adapter()
	if err != nil {
		return nil, nil, err
	}
	return session.New(s, a, session.WithLogger(c.log)), release, nil
}

// decodeEntity decodes a JSON object. Numbers are kept as json.Number
// so that integers survive unchanged.
func decodeEntity(s string) (relmap.Entity, error) {
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var e relmap.Entity
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("decode entity: expect a JSON object")
	}
	return e, nil
}

func encodeEntity(w io.Writer, e relmap.Entity) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
