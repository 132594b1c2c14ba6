package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/spf13/cobra"
)

var indexInsertCmd = &cobra.Command{
	Use:   "insert KEY [FILE]",
	Short: "Index some content",
	Long: `Store the content of a file, or of stdin, and index it for a key.

An existing key is overwritten, unless --add is set. With --replace, the key must already be indexed.
With --tree-root, the key indexes the root of another index instead of content.

Prints the new root of the index, which is saved to the root file.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if casFlags.index.add && casFlags.index.replace {
			wrapFatalln("--add and --replace are mutually exclusive", nil)
			return
		}
		key, err := parseKey(args[0])
		if err != nil {
			wrapFatalln("invalid key", err)
			return
		}

		stack, err := openStack(ctx, nil)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		ix, _, err := openIndex(stack)
		if err != nil {
			wrapFatalln("failed to open index", err)
			return
		}

		leaf, err := insertedLeaf(ctx, stack, args[1:])
		if err != nil {
			wrapFatalln("failed to store content", err)
			return
		}

		switch {
		case casFlags.index.add:
			_, err = ix.Add(ctx, key, leaf)
		case casFlags.index.replace:
			_, err = ix.Replace(ctx, key, leaf)
		default:
			_, err = ix.Insert(ctx, key, leaf)
		}
		if err != nil {
			wrapFatalln("failed to index "+args[0], err)
			return
		}

		if err := writeRoot(ix.Root()); err != nil {
			wrapFatalln("failed to save root", err)
			return
		}
		infoLogger.Println(ix.Root())
	},
}

// insertedLeaf stores the content to index, or parses the --tree-root identifier
func insertedLeaf(ctx context.Context, p provider.Provider, args []string) (tree.LeafNode, error) {
	if casFlags.index.treeRoot != "" {
		if len(args) > 0 {
			return tree.LeafNode{}, fmt.Errorf("no content is expected with --tree-root")
		}
		root, err := tree.ParseTreeIdentifier(casFlags.index.treeRoot)
		if err != nil {
			return tree.LeafNode{}, err
		}
		return tree.TreeRootLeaf(root), nil
	}

	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	data, err := readInput(name)
	if err != nil {
		return tree.LeafNode{}, err
	}
	id, err := p.Write(ctx, data)
	if err != nil {
		return tree.LeafNode{}, err
	}
	return tree.ResourceLeaf(tree.NewResourceIdentifier(id)), nil
}

func init() {
	addAddFlag(indexInsertCmd)
	addReplaceFlag(indexInsertCmd)
	addTreeRootFlag(indexInsertCmd)
	indexCmd.AddCommand(indexInsertCmd)
}
