// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, export and import the conversion history",
	Long: `History manages the local SQLite database of past encodes, decodes,
batches, expansions and questions. Recording is controlled by the
history.enabled setting.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent operations, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No history.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-7s  %-6s  %-40s  %s\n", "When", "Op", "Domain", "Input", "Result")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, e := range entries {
		input := e.Input
		if len(input) > 40 {
			input = input[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-7s  %-6s  %-40s  %d ok, %d failed\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Operation, e.Domain, input, e.Successful, e.Failed)
	}
	fmt.Fprintf(os.Stdout, "\n%d entries\n", len(entries))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export <file.json|file.yaml>",
	Short: "Export the history to JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Export(cmd.Context(), args[0], historyOptsFromFlags(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d entries to %s\n", n, args[0])
	return nil
}

// --- import subcommand ---

var historyImportCmd = &cobra.Command{
	Use:   "import <file.json|file.yaml>",
	Short: "Load entries from an exported history file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d entries from %s\n", n, args[0])
		return nil
	},
}

// --- clear subcommand ---

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every history entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Clear(cmd.Context())
	},
}

func historyOptsFromFlags(cmd *cobra.Command) history.QueryOptions {
	op, _ := cmd.Flags().GetString("operation")
	domain, _ := cmd.Flags().GetString("domain")
	limit, _ := cmd.Flags().GetInt("limit")
	return history.QueryOptions{Operation: history.Operation(op), Domain: domain, Limit: limit}
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("operation", "", "filter by operation: encode, decode, batch, expand, ask")
		c.Flags().String("domain", "", "filter by domain: image, pdf, sheet")
	}
	historyListCmd.Flags().Int("limit", 0, "maximum entries (0 = default of 50)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(historyCmd)
}
