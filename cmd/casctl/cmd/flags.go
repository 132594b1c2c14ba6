package cmd

import (
	"github.com/oneconcern/contentstore/pkg/httpd"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	indexerStringPath = "stringpath"
	indexerStatic     = "static"
	indexerComposite  = "composite"
)

type flagsT struct {
	root struct {
		logLevel string
		provider string
		rootFile string
	}
	content struct {
		output    string
		check     bool
		chunked   bool
		chunkSize string
	}
	index struct {
		kind       string
		keyWidth   int
		layerWidth int
		separator  string
		keepEmpty  bool
		root       string
		add        bool
		replace    bool
		treeRoot   string
		unchanged  bool
		template   string
		recursive  bool
	}
	serve httpd.Config
}

var casFlags = flagsT{
	serve: httpd.DefaultConfig(),
}

func addLogLevelFlag(cmd *cobra.Command) string {
	logLevel := "loglevel"
	cmd.PersistentFlags().StringVar(&casFlags.root.logLevel, logLevel, "warn", "The logging level: debug, info, warn, error or none")
	return logLevel
}

func addProviderFlag(cmd *cobra.Command) string {
	providerURI := "provider"
	cmd.PersistentFlags().StringVar(&casFlags.root.provider, providerURI, "",
		"The URI of the content provider, e.g. file:///var/lib/casctl, s3://bucket/prefix or http://localhost:8080. "+
			"Overrides content_provider in the config file")
	_ = viper.BindPFlag("content_provider", cmd.PersistentFlags().Lookup(providerURI))
	return providerURI
}

func addChunkSizeFlag(cmd *cobra.Command) string {
	chunkSize := "chunk-size"
	cmd.PersistentFlags().StringVar(&casFlags.content.chunkSize, chunkSize, "",
		"The size of chunks for chunked content, e.g. 8MiB. Overrides chunk_size in the config file")
	_ = viper.BindPFlag("chunk_size", cmd.PersistentFlags().Lookup(chunkSize))
	return chunkSize
}

func addChunkedFlag(cmd *cobra.Command) string {
	chunked := "chunked"
	cmd.Flags().BoolVar(&casFlags.content.chunked, chunked, false, "Store or retrieve large content in chunks, using a chunk identifier")
	return chunked
}

func addRootFileFlag(cmd *cobra.Command) string {
	rootFile := "root-file"
	cmd.PersistentFlags().StringVar(&casFlags.root.rootFile, rootFile, ".casctl-root", "The file holding the current root of the index")
	return rootFile
}

func addOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.Flags().StringVarP(&casFlags.content.output, output, "o", "", "Write content to this file instead of stdout")
	return output
}

func addCheckFlag(cmd *cobra.Command) string {
	check := "check"
	cmd.Flags().BoolVar(&casFlags.content.check, check, false, "Exit with status 1 when some content is absent")
	return check
}

func addIndexerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&casFlags.index.kind, "indexer", indexerStringPath,
		"The kind of indexer: stringpath (slash-separated paths), static (fixed-width hex keys) or composite (hex:path keys)")
	cmd.PersistentFlags().IntVar(&casFlags.index.keyWidth, "key-width", 8, "The width of keys in bytes, for a static indexer")
	cmd.PersistentFlags().IntVar(&casFlags.index.layerWidth, "layer-width", 1, "The number of key bytes per tree level, for a static indexer")
	cmd.PersistentFlags().StringVar(&casFlags.index.separator, "separator", "/", "The path separator, for a stringpath indexer")
	cmd.PersistentFlags().BoolVar(&casFlags.index.keepEmpty, "keep-empty", false, "Keep directories left empty by removals, for a stringpath indexer")
	cmd.PersistentFlags().StringVar(&casFlags.index.root, "root", "", "Use this root instead of the one held by the root file")
}

func addAddFlag(cmd *cobra.Command) string {
	add := "add"
	cmd.Flags().BoolVar(&casFlags.index.add, add, false, "Fail if the key is already indexed")
	return add
}

func addReplaceFlag(cmd *cobra.Command) string {
	replace := "replace"
	cmd.Flags().BoolVar(&casFlags.index.replace, replace, false, "Fail if the key is not indexed yet")
	return replace
}

func addTreeRootFlag(cmd *cobra.Command) string {
	treeRoot := "tree-root"
	cmd.Flags().StringVar(&casFlags.index.treeRoot, treeRoot, "", "Index the root of another index instead of content")
	return treeRoot
}

func addUnchangedFlag(cmd *cobra.Command) string {
	unchanged := "unchanged"
	cmd.Flags().BoolVar(&casFlags.index.unchanged, unchanged, false, "Also report unchanged sub-trees")
	return unchanged
}

func addTemplateFlag(cmd *cobra.Command) string {
	tmpl := "template"
	cmd.Flags().StringVar(&casFlags.index.template, tmpl, "", "A go template to render each difference")
	return tmpl
}

func addRecursiveFlag(cmd *cobra.Command) string {
	recursive := "recursive"
	cmd.Flags().BoolVarP(&casFlags.index.recursive, recursive, "r", false, "List all the keys under a directory, for a stringpath indexer")
	return recursive
}
