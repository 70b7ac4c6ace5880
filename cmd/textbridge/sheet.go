// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Read, write and inspect spreadsheets (xlsx, xlsm, ods, csv; xls read-only)",
}

// --- read subcommand ---

var sheetReadCmd = &cobra.Command{
	Use:   "read <workbook>",
	Short: "Print one sheet as JSON records",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheetRead,
}

func runSheetRead(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("sheet")
	output, _ := cmd.Flags().GetString("output")

	info, err := codec.NewSheetAdapter().ReadRecords(args[0], name)
	if err != nil {
		return err
	}

	var data []byte
	if jsonOutput(cmd) {
		data, err = json.MarshalIndent(struct {
			Success bool `json:"success"`
			types.SheetInfo
		}{true, info}, "", "  ")
	} else {
		data, err = json.MarshalIndent(info.Records, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	data = append(data, '\n')

	if output != "" {
		if err := fsutil.WriteFileAtomic(output, data); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "read %d rows from sheet %q -> %s\n", info.RowCount, info.SheetName, output)
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}

// --- write subcommand ---

var sheetWriteCmd = &cobra.Command{
	Use:   "write <records.json>",
	Short: "Write JSON records to a workbook or CSV file",
	Long: `Write reads a JSON array of records (or an object with "data",
"columns" and "sheetName") and writes it to --output. The file format
follows the output extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runSheetWrite,
}

func runSheetWrite(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return fmt.Errorf("--output is required: %w", types.ErrEmptyInput)
	}
	text, err := readText(args[0])
	if err != nil {
		return err
	}

	opts := codec.DecodeOptions{SheetName: cfg.Sheet.DefaultSheet}
	if cmd.Flags().Changed("sheet") {
		opts.SheetName, _ = cmd.Flags().GetString("sheet")
	}
	if cols, _ := cmd.Flags().GetString("columns"); cols != "" {
		opts.Columns = strings.Split(cols, ",")
	}

	bin, err := codec.NewSheetAdapter().Decode(cmd.Context(), text, output, opts)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(map[string]any{
			"success": true, "outputPath": bin.Path, "format": bin.DeclaredFormat,
			"size": bin.Size, "sizeKB": types.SizeKB(bin.Size),
		})
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%s, %s KB)\n", bin.Path, bin.DeclaredFormat, types.SizeKB(bin.Size))
	return nil
}

// --- info subcommand ---

var sheetInfoCmd = &cobra.Command{
	Use:   "info <workbook>",
	Short: "List the sheets of a workbook with their used ranges",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheetInfo,
}

func runSheetInfo(cmd *cobra.Command, args []string) error {
	info, err := codec.NewSheetAdapter().WorkbookInfo(args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(struct {
			Success bool `json:"success"`
			codec.WorkbookInfo
		}{true, info})
	}

	fmt.Fprintf(os.Stdout, "%s: %d sheet(s)\n\n", info.FileName, info.SheetCount)
	fmt.Fprintf(os.Stdout, "%-30s  %8s  %8s  %8s\n", "Sheet", "Rows", "Columns", "Cells")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
	for _, s := range info.Sheets {
		fmt.Fprintf(os.Stdout, "%-30s  %8d  %8d  %8d\n", s.Name, s.RowCount, s.ColumnCount, s.CellCount)
	}
	return nil
}

func init() {
	sheetReadCmd.Flags().String("sheet", "", "sheet to read (default: first sheet)")
	sheetReadCmd.Flags().StringP("output", "o", "", "write the records to this file instead of stdout")

	sheetWriteCmd.Flags().StringP("output", "o", "", "workbook or CSV file to write (required)")
	sheetWriteCmd.Flags().String("sheet", "", "sheet name (default from config)")
	sheetWriteCmd.Flags().String("columns", "", "comma-separated column order (default: from the records)")

	sheetCmd.AddCommand(sheetReadCmd)
	sheetCmd.AddCommand(sheetWriteCmd)
	sheetCmd.AddCommand(sheetInfoCmd)

	rootCmd.AddCommand(sheetCmd)
}
