package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	mutedColor   = color.New(color.Faint)
)

var rootCmd = &cobra.Command{
	Use:   "chameleon-mock",
	Short: "chameleon-mock - Mock data provider for ChameleonDB engines",
	Long: `chameleon-mock registers expected queries and canned answers for the
ChameleonDB engine, so code that talks to the engine can be tested
without a database.

Get started:
  chameleon-mock init myproject
  cd myproject
  chameleon-mock validate
  chameleon-mock replay scripts/example.yml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./.chameleon-mock.yml)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Helper functions for consistent output
func printSuccess(format string, args ...interface{}) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	warningColor.Printf("⚠ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	infoColor.Printf("ℹ "+format+"\n", args...)
}
