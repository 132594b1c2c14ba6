package cmd

import (
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Commands to manage an index",
	Long: `Commands to manage an index of content.

An index maps keys to content, or to the root of another index. It is stored as a tree in the content provider.
Every change yields a new root, which is saved to the root file.

A stringpath indexer maps slash-separated paths, browsed like directories.
A static indexer maps fixed-width binary keys, given in hex.
A composite indexer maps hex:path keys: a static key, then a path under it.`,
}

func init() {
	addIndexerFlags(indexCmd)
	rootCmd.AddCommand(indexCmd)
}
