// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

const bash = "bash"
const zsh = "zsh"

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion SHELL",
	Short: "generate completions for the casctl command",
	Long: `Generate completions for your shell

	For bash add the following line to your ~/.bashrc

		eval "$(casctl completion bash)"

	For zsh add generate a file:

		casctl completion zsh > /usr/local/share/zsh/site-functions/_casctl

	`,
	ValidArgs: []string{bash, zsh},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case bash:
			if err := rootCmd.GenBashCompletion(stdout); err != nil {
				wrapFatalln("failed to generate bash completion", err)
				return
			}
		case zsh:
			if err := rootCmd.GenZshCompletion(stdout); err != nil {
				wrapFatalln("failed to generate zsh completion", err)
				return
			}
		}
	},
}

func init() {
	completionCmd.Hidden = true
	rootCmd.AddCommand(completionCmd)
}
