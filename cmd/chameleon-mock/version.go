package main

import (
	"fmt"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show chameleon-mock version",
	Long:  "Display the current version of the chameleon-mock CLI and engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chameleon-mock v%s\n", engine.Version)

		if verbose {
			fmt.Println("\nProviders:")
			for _, scheme := range engine.RegisteredSchemes() {
				fmt.Printf("  %s://\n", scheme)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
