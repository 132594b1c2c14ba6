package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists ID...",
	Short: "Check for content",
	Long: `Check whether some content is held by the content provider.

With --check, exits with status 1 when some content is absent.`,
	Args: cobra.MinimumNArgs(1),
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

		var missing int
		for _, id := range ids {
			found, err := stack.Exists(ctx, id)
			if err != nil {
				wrapFatalln("failed to check content", err)
				return
			}
			if !found {
				missing++
			}
			infoLogger.Printf("%v\t%t", id, found)
		}
		if missing > 0 && casFlags.content.check {
			wrapFatalWithCodef(1, "%d content(s) missing", missing)
		}
	},
}

func init() {
	addCheckFlag(existsCmd)
	rootCmd.AddCommand(existsCmd)
}
