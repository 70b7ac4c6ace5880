package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of textbridge",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput(cmd) {
			printJSON(map[string]string{"version": version})
			return
		}
		fmt.Printf("textbridge %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
