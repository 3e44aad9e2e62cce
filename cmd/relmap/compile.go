package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func (c *cli) newCompileCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a schema and print its table layout as YAML",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrInvalidNumberOfArguments
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.printLayout(cmd.OutOrStdout(), args[0]); err != nil && !watch {
				return err
			} else if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "compile: %v\n", err)
			}
			if !watch {
				return nil
			}
			w, err := newWatcher(args[0])
			if err != nil {
				return err
			}
			defer w.Close()
			return c.watch(cmd.Context(), w, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Recompile whenever the schema file changes")
	return cmd
}

func (c *cli) printLayout(out io.Writer, path string) error {
	s, err := c.compile(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(s.Describe()); err != nil {
		return err
	}
	return enc.Close()
}

// newWatcher watches the directory of path, so that editors replacing the
// file are noticed.
func newWatcher(path string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// watch recompiles path on every change until ctx is done. Compile errors
// are reported and watching goes on.
func (c *cli) watch(ctx context.Context, w *fsnotify.Watcher, path string, out, errOut io.Writer) error {
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			c.log.Debug("schema changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			fmt.Fprintf(out, "# %s\n", ev.Name)
			if err := c.printLayout(out, path); err != nil {
				fmt.Fprintf(errOut, "compile: %v\n", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("watch", zap.Error(err))
		}
	}
}
