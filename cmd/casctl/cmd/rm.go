package cmd

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm ID...",
	Short:   "Remove content",
	Long:    "Remove content from the content provider, when the provider supports it.",
	Aliases: []string{"unwrite"},
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ids, err := parseIdentifiers(args)
		if err != nil {
			wrapFatalln("invalid identifier", err)
			return
		}
		stack, err := openStack(ctx, nil)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		for _, id := range ids {
			if err := provider.Unwrite(ctx, stack, id); err != nil {
				wrapFatalln("failed to remove content", err)
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
