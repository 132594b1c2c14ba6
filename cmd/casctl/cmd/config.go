// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the config of casctl",
	Long: `The namespace for managing config settings of casctl.

The config file is casctl.yaml, searched in the current directory, $HOME/.casctl and /etc/casctl,
or set by the CASCTL_CONFIG environment variable. Settings may be overridden by CASCTL_* environment variables.`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
