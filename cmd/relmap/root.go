package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq" // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/bolt"
	"github.com/syssam/relmap/dialect/cache"
	"github.com/syssam/relmap/dialect/cql"
	"github.com/syssam/relmap/dialect/sql"
)

// ErrInvalidNumberOfArguments is returned when a command gets the wrong
// number of positional arguments.
var ErrInvalidNumberOfArguments = errors.New("invalid number of arguments")

// cli holds the state shared by the subcommands.
type cli struct {
	verbose bool
	log     *zap.Logger
}

// storage holds the flags of a command that opens a storage adapter.
type storage struct {
	*cli
	driver    string
	dsn       string
	keyspace  string
	cacheSize int
	cacheTTL  time.Duration
}

func newRootCmd() *cobra.Command {
	c := &cli{log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "relmap",
		Short:         "Relational mapping of linked entity schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !c.verbose {
				return nil
			}
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.log.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log to stderr at debug level")
	root.AddCommand(
		c.newCompileCmd(),
		c.newGenCmd(),
		c.newMigrateCmd(),
		c.newGetCmd(),
		c.newInsertCmd(),
	)
	return root
}

// storageFlags registers the flags selecting a storage adapter on cmd.
func (c *cli) storageFlags(cmd *cobra.Command, drivers ...string) *storage {
	st := &storage{cli: c}
	cmd.Flags().StringVar(&st.driver, "driver", drivers[0], "Storage driver: "+strings.Join(drivers, ", "))
	cmd.Flags().StringVar(&st.dsn, "dsn", "", "Data source: a file for bolt and sqlite, a connection string for postgres and mysql, comma separated hosts for cql")
	if slices.Contains(drivers, dialect.CQL) {
		cmd.Flags().StringVar(&st.keyspace, "keyspace", "relmap", "Keyspace of the cql driver")
	}
	_ = cmd.MarkFlagRequired("dsn")
	return st
}

// compile loads and compiles the schema file at path.
func (c *cli) compile(path string) (*rel.Schema, error) {
	def, hints, err := load.File(path)
	if err != nil {
		return nil, err
	}
	return rel.Compile(def, hints)
}

// sqlDriver opens the SQL database selected by the flags.
func (c *storage) sqlDriver() (*sql.Driver, error) {
	switch c.driver {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
		return sql.Open(c.driver, c.dsn)
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", c.driver)
	}
}

// adapter opens the storage adapter selected by the flags. The returned
// function releases it.
func (c *storage) adapter() (dialect.Adapter, func(), error) {
	var (
		a       dialect.Adapter
		release func()
	)
	switch c.driver {
	case dialect.Bolt:
		b, err := bolt.Open(c.dsn, bolt.WithLogger(c.log))
		if err != nil {
			return nil, nil, err
		}
		a, release = b, func() { _ = b.Close() }
	case dialect.CQL:
		q, err := cql.Open(strings.Split(c.dsn, ","), c.keyspace, cql.WithLogger(c.log))
		if err != nil {
			return nil, nil, err
		}
		a, release = q, q.Close
	default:
		drv, err := c.sqlDriver()
		if err != nil {
			return nil, nil, err
		}
		a, release = sql.NewAdapter(drv, sql.WithLogger(c.log)), func() { _ = drv.Close() }
	}
	if c.cacheSize > 0 {
		lru, err := cache.NewLRU(c.cacheSize)
		if err != nil {
			release()
			return nil, nil, err
		}
		a = cache.New(a, lru, cache.WithTTL(c.cacheTTL), cache.WithLogger(c.log))
	}
	if c.verbose {
		a = dialect.NewDebug(a, c.log)
	}
	return a, release, nil
}
