// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/oneconcern/contentstore/pkg/dlogger"
	"github.com/oneconcern/contentstore/pkg/provider/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "casctl",
	Short: "casctl manages a content-addressable store and its indexes",
	Long: `casctl stores immutable content by its fingerprint, and maintains persistent indexes mapping keys to content.

Content lives in a stack of providers: local files, a bolt database, S3 or GCS buckets, or a remote content server,
optionally fronted by caches.

An index is a tree stored in the content store itself: every change yields a new root identifier,
which casctl keeps in a root file.
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		l, err := dlogger.GetLogger(casFlags.root.logLevel, dlogger.Encoding(dlogger.EncodingConsole))
		if err != nil {
			wrapFatalln("invalid log level", err)
			return
		}
		logger = l
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var logger = zap.NewNop()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addLogLevelFlag(rootCmd)
	addProviderFlag(rootCmd)
	addChunkSizeFlag(rootCmd)
	addRootFileFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if os.Getenv("CASCTL_CONFIG") != "" {
		// Use config file from the flag.
		viper.SetConfigFile(os.Getenv("CASCTL_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.casctl")
		viper.AddConfigPath("/etc/casctl")
		viper.SetConfigName("casctl")
	}

	viper.SetEnvPrefix("casctl")
	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
}
