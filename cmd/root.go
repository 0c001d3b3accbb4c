package cmd

import (
	"fmt"
	"os"

	"chipstream/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chipstream",
	Short: "CHIP.STREAM is a chiptune catalog and streaming service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
