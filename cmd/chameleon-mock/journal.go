package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chameleon-db/chameleon-mock/internal/journal"
	"github.com/spf13/cobra"
)

var journalFormat string

var journalCmd = &cobra.Command{
	Use:   "journal <subcommand>",
	Short: "Show the run journal",
	Long: `View the journal of replay, validate and query runs.

The journal is an append-only log stored in .chameleon-mock/journal/
with one file per day.

Subcommands:
  journal last       Show last N runs
  journal errors     Show failed runs
  journal stats      Show today's run counts`,
	Args: cobra.MinimumNArgs(1),
}

var journalLastCmd = &cobra.Command{
	Use:   "last [n]",
	Short: "Show last N journal entries",
	Long: `Display the most recent journal entries.

Examples:
  chameleon-mock journal last        # Last 10 entries
  chameleon-mock journal last 20     # Last 20 entries
  chameleon-mock journal last 5 --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid number: %s", args[0])
			}
			limit = n
		}

		logger, err := openJournal()
		if err != nil {
			return err
		}
		entries, err := logger.Last(limit)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		if len(entries) == 0 {
			printInfo("No journal entries found")
			return nil
		}
		return printEntries(entries)
	},
}

var journalErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show error journal entries",
	Long: `Display every failed run in the journal.

Examples:
  chameleon-mock journal errors
  chameleon-mock journal errors --format=json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openJournal()
		if err != nil {
			return err
		}
		entries, err := logger.Errors()
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		if len(entries) == 0 {
			printSuccess("No errors found")
			return nil
		}
		return printEntries(entries)
	},
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's run counts per action",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openJournal()
		if err != nil {
			return err
		}
		idx, err := logger.Index()
		if err != nil {
			return fmt.Errorf("failed to read journal index: %w", err)
		}

		if journalFormat == "json" {
			out, err := json.MarshalIndent(idx, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		if idx.Entries == 0 {
			printInfo("No runs recorded today")
			return nil
		}
		actions := make([]string, 0, len(idx.ByAction))
		for action := range idx.ByAction {
			actions = append(actions, action)
		}
		sort.Strings(actions)

		fmt.Printf("\n%s: %d run(s)\n", idx.Date, idx.Entries)
		for _, action := range actions {
			fmt.Printf("  %-10s %d\n", action, idx.ByAction[action])
		}
		fmt.Println()
		return nil
	},
}

func openJournal() (*journal.Logger, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}
	logger, err := p.factory.CreateJournalLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return logger, nil
}

func init() {
	journalCmd.AddCommand(journalLastCmd)
	journalCmd.AddCommand(journalErrorsCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalCmd.PersistentFlags().StringVar(&journalFormat, "format", "table", "output format (table|json)")

	rootCmd.AddCommand(journalCmd)
}

func printEntries(entries []*journal.Entry) error {
	if journalFormat == "json" {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	printEntriesTable(entries)
	return nil
}

// printEntriesTable prints entries in table format
func printEntriesTable(entries []*journal.Entry) {
	fmt.Println()
	fmt.Println("Timestamp                Action      Status      Details")
	fmt.Println("─────────────────────────────────────────────────────────────────")

	for _, entry := range entries {
		timestamp := entry.Timestamp.Local().Format("2006-01-02 15:04:05")

		var details []string
		keys := make([]string, 0, len(entry.Details))
		for k := range entry.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			details = append(details, fmt.Sprintf("%s=%v", k, entry.Details[k]))
		}
		if entry.Duration > 0 {
			details = append(details, fmt.Sprintf("duration=%dms", entry.Duration))
		}
		if entry.Error != "" {
			details = append(details, "error="+truncate(entry.Error, 50))
		}

		line := fmt.Sprintf("%-25s %-11s %-11s %s", timestamp, entry.Action, entry.Status, strings.Join(details, " "))
		if entry.Status == journal.StatusError {
			errorColor.Println(line)
		} else {
			fmt.Println(line)
		}
	}

	fmt.Println()
}

// truncate truncates a string to max length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
