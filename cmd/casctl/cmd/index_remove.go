package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var indexRemoveCmd = &cobra.Command{
	Use:     "remove KEY...",
	Short:   "Remove keys from the index",
	Long:    "Remove keys from the index. Removing a key which is not indexed leaves the index unchanged.",
	Aliases: []string{"rm"},
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
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

		for _, arg := range args {
			key, err := parseKey(arg)
			if err != nil {
				wrapFatalln("invalid key", err)
				return
			}
			_, removed, err := ix.Remove(ctx, key)
			if err != nil {
				wrapFatalln("failed to remove "+arg, err)
				return
			}
			if !removed {
				logger.Info("key not indexed: " + arg)
			}
		}

		if err := writeRoot(ix.Root()); err != nil {
			wrapFatalln("failed to save root", err)
			return
		}
		infoLogger.Println(ix.Root())
	},
}

func init() {
	indexCmd.AddCommand(indexRemoveCmd)
}
