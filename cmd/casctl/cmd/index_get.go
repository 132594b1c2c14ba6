package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var indexGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Retrieve indexed content",
	Long: `Retrieve the content indexed for a key, and write it to stdout or to the --output file.

When the key indexes the root of another index, that root is printed instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
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

		leaf, found, err := ix.Get(ctx, key)
		if err != nil {
			wrapFatalln("failed to look up "+args[0], err)
			return
		}
		if !found {
			wrapFatalln("key not found: "+args[0], nil)
			return
		}
		if root, ok := leaf.TreeRoot(); ok {
			infoLogger.Println(root)
			return
		}

		data, _, err := ix.GetContent(ctx, key)
		if err != nil {
			wrapFatalln("failed to read content", err)
			return
		}
		if err := writeOutput(data); err != nil {
			wrapFatalln("failed to write content", err)
			return
		}
	},
}

func init() {
	addOutputFlag(indexGetCmd)
	indexCmd.AddCommand(indexGetCmd)
}
