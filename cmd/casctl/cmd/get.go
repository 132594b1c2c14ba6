package cmd

import (
	"context"
	"os"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Retrieve content",
	Long: `Retrieve some content by its identifier, and write it to stdout or to the --output file.

With --chunked, the identifier is a chunk identifier printed by "put --chunked", and content is streamed.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if casFlags.content.chunked {
			getChunked(ctx, args[0])
			return
		}
		id, err := identifier.Parse(args[0])
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

		data, err := stack.Read(ctx, id)
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

func getChunked(ctx context.Context, arg string) {
	id, err := provider.ParseChunkIdentifier(arg)
	if err != nil {
		wrapFatalln("invalid chunk identifier", err)
		return
	}
	stack, err := openStack(ctx, nil)
	if err != nil {
		wrapFatalln("failed to open content provider", err)
		return
	}
	defer closeStack(stack)

	out := stdout
	if casFlags.content.output != "" {
		f, err := os.Create(casFlags.content.output)
		if err != nil {
			wrapFatalln("failed to create output", err)
			return
		}
		defer f.Close()
		out = f
	}
	if _, err := stack.Chunker().ReadTo(ctx, out, id); err != nil {
		wrapFatalln("failed to read content", err)
		return
	}
}

func init() {
	addOutputFlag(getCmd)
	addChunkedFlag(getCmd)
	rootCmd.AddCommand(getCmd)
}
