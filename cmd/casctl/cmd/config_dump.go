// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/contentstore/pkg/provider/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the config used",
	Long:  `Print the config used by the invocation of the casctl command`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.FromViper(viper.GetViper())
		if err != nil {
			wrapFatalln("invalid config", err)
			return
		}
		if err := printResult(cmd, cfg); err != nil {
			wrapFatalln("failed to print config", err)
			return
		}
	},
}

func init() {
	configCmd.AddCommand(dumpCmd)
	addFormatFlag(dumpCmd, "yaml")
}
