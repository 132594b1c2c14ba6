package cmd

import (
	"context"
	"os"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/config"
	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put [FILE]...",
	Short: "Store content",
	Long: `Store the content of files, or of stdin when no file or "-" is given.

Prints the identifier of each stored content. Storing the same content twice yields the same identifier.

With --chunked, content is streamed in chunks of --chunk-size bytes, and a chunk identifier is printed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stack, err := openStack(ctx, nil)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		if len(args) == 0 {
			args = []string{"-"}
		}
		for _, name := range args {
			if casFlags.content.chunked {
				id, err := putChunked(ctx, stack, name)
				if err != nil {
					wrapFatalln("failed to store "+name, err)
					return
				}
				infoLogger.Printf("%v\t%s", id, name)
				continue
			}
			data, err := readInput(name)
			if err != nil {
				wrapFatalln("failed to read "+name, err)
				return
			}
			id, err := stack.Write(ctx, data)
			if err != nil {
				wrapFatalln("failed to store "+name, err)
				return
			}
			infoLogger.Printf("%v\t%s", id, name)
		}
	},
}

func putChunked(ctx context.Context, stack *config.Stack, name string) (provider.ChunkIdentifier, error) {
	if name == "-" {
		return stack.Chunker().WriteFrom(ctx, stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return provider.ChunkIdentifier{}, err
	}
	defer f.Close()
	return stack.Chunker().WriteFrom(ctx, f)
}

func init() {
	addChunkedFlag(putCmd)
	rootCmd.AddCommand(putCmd)
}
