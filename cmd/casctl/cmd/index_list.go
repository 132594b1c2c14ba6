package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/contentstore/pkg/indexer"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/spf13/cobra"
)

type listEntry struct {
	Key  string `json:"key" yaml:"key"`
	Kind string `json:"kind" yaml:"kind"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

func newListEntry(key tree.IndexKey, n tree.Node) listEntry {
	e := listEntry{
		Key:  formatKey(key),
		Kind: n.Kind.String(),
	}
	if !n.ID.IsZero() {
		e.ID = n.ID.String()
	}
	return e
}

var indexListCmd = &cobra.Command{
	Use:     "list [DIR|PREFIX]",
	Short:   "List indexed keys",
	Aliases: []string{"ls"},
	Long: `List the keys of an index, in key order.

For a stringpath indexer, lists the entries of a directory, or of the root when no directory is given.
With --recursive, lists all the keys under the directory.

For a static indexer, lists all the keys starting with some hex prefix.

For a composite indexer, lists all the keys starting with some hex:path prefix.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		var arg string
		if len(args) > 0 {
			arg = args[0]
		}
		stack, err := openStack(ctx, nil)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		ix, ixr, err := openIndex(stack)
		if err != nil {
			wrapFatalln("failed to open index", err)
			return
		}

		entries := make([]listEntry, 0)
		if sp, ok := ixr.(*indexer.StringPathIndexer); ok && !casFlags.index.recursive {
			dir, err := sp.List(ctx, stack, ix.Root(), arg)
			if err != nil {
				wrapFatalln("failed to list "+arg, err)
				return
			}
			for _, e := range dir {
				entries = append(entries, newListEntry(e.Key, e.Node))
			}
		} else {
			if ok && arg != "" && arg[len(arg)-1] != sp.Separator() {
				arg += string(sp.Separator())
			}
			var prefix tree.IndexKey
			if arg != "" {
				if prefix, err = parseKey(arg); err != nil {
					wrapFatalln("invalid prefix", err)
					return
				}
			}
			collect := func(k tree.IndexKey, l tree.LeafNode) error {
				entries = append(entries, newListEntry(k, l.Node()))
				return nil
			}
			if casFlags.index.kind == indexerComposite {
				// sub-indexes are not laid out in the key space of composite keys
				err = ix.EnumerateLeaves(ctx, func(k tree.IndexKey, l tree.LeafNode) error {
					if !bytes.HasPrefix(k, prefix) {
						return nil
					}
					return collect(k, l)
				})
			} else {
				err = ix.EnumerateRange(ctx, tree.PrefixRange(prefix), collect)
			}
			if err != nil {
				wrapFatalln("failed to enumerate keys", err)
				return
			}
		}

		if err := printResult(cmd, entries); err != nil {
			wrapFatalln("failed to print keys", err)
			return
		}
	},
}

func listTableFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		entries := data.([]listEntry)
		table := uitable.New()
		table.MaxColWidth = 80
		table.AddRow("KEY", "KIND", "ID")
		for _, e := range entries {
			key := e.Key
			if e.Kind == tree.NodeBranch.String() {
				key = color.BlueString(key)
			}
			table.AddRow(key, e.Kind, e.ID)
		}
		_, err := fmt.Fprintln(w, table)
		return err
	}
}

func init() {
	addRecursiveFlag(indexListCmd)
	addFormatFlag(indexListCmd, "table", map[string]Formatter{
		"table": listTableFormatter(),
	})
	indexCmd.AddCommand(indexListCmd)
}
