// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/batch"
	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/pkg/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <files or directories...>",
	Short: "Encode many files into separate text files or one aggregate",
	Long: `Batch encodes every input in order. Directories are replaced by the
supported files they contain. A file that fails is recorded and the batch
moves on.

Modes:
  separate  one .b64 (image, pdf) or .json (sheet) file per input in --output
  json      one aggregate document; the only mode expand can read back
  csv, xml, yaml, txt  one-way exports of the same aggregate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	d, err := batchDomain(cmd, args)
	if err != nil {
		return err
	}
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := batch.ParseMode(modeName)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultBatchOutput(d, mode)
	}

	engine := batch.NewEngine(codec.DefaultRegistry(), progressWriter(cmd))
	engine.OnProgress = func(done, total int) {
		slog.Debug("batch progress", "done", done, "total", total)
	}

	res, err := engine.Run(cmd.Context(), batch.Request{
		Domain: d,
		Inputs: args,
		Mode:   mode,
		Output: output,
		Encode: encodeOptions(cmd, d),
	})
	record(cmd.Context(), history.Entry{
		Operation:  history.OpBatch,
		Domain:     string(d),
		Input:      strings.Join(args, " "),
		Output:     output,
		Total:      res.TotalFiles,
		Successful: res.Successful,
		Failed:     res.Failed,
		Errors:     res.Errors,
	})
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		if err := printJSON(res); err != nil {
			return err
		}
	} else if res.OutputPath != "" {
		fmt.Fprintf(os.Stdout, "Output: %s\n", res.OutputPath)
	}

	if res.HasFailures() {
		return fmt.Errorf("%d file(s) failed encoding", res.Failed)
	}
	return nil
}

// batchDomain returns --domain, or the domain of the first input file.
func batchDomain(cmd *cobra.Command, args []string) (types.Domain, error) {
	if name, _ := cmd.Flags().GetString("domain"); name != "" {
		return types.ParseDomain(name)
	}
	registry := codec.DefaultRegistry()
	for _, a := range args {
		if info, err := os.Stat(a); err == nil && info.IsDir() {
			continue
		}
		adapter, err := registry.ForPath(a)
		if err != nil {
			return "", fmt.Errorf("cannot infer domain from %s, use --domain: %w", a, err)
		}
		return adapter.Domain(), nil
	}
	return "", fmt.Errorf("--domain is required when every input is a directory: %w", types.ErrEmptyInput)
}

func defaultBatchOutput(d types.Domain, m batch.Mode) string {
	if m == batch.ModeSeparate {
		return fsutil.SanitizeName(string(d) + "-text")
	}
	return string(d) + "-batch" + m.Extension()
}

var expandCmd = &cobra.Command{
	Use:   "expand <aggregate.json>",
	Short: "Expand a JSON aggregate back into files",
	Long: `Expand reads an aggregate written by batch --mode json and decodes every
item into --output-dir. The aggregate's type tag must match the domain
(taken from --domain or from the tag itself). Items without a filename or
payload are skipped; failed items are listed in the summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	path := args[0]
	outDir, _ := cmd.Flags().GetString("output-dir")

	var d types.Domain
	if name, _ := cmd.Flags().GetString("domain"); name != "" {
		parsed, err := types.ParseDomain(name)
		if err != nil {
			return err
		}
		d = parsed
	} else {
		data, _, err := fsutil.ReadFile(path)
		if err != nil {
			return err
		}
		if d, err = batch.PeekDomain(data); err != nil {
			return err
		}
	}

	format := cfg.Sheet.ExpandFormat
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	opts := batch.ExpandOptions{
		Format: format,
		Decode: codec.DecodeOptions{Quality: cfg.Image.Quality, Optimize: cfg.Image.Optimize},
	}

	engine := batch.NewEngine(codec.DefaultRegistry(), progressWriter(cmd))
	res, err := engine.Expand(cmd.Context(), path, outDir, d, opts)
	record(cmd.Context(), history.Entry{
		Operation:  history.OpExpand,
		Domain:     string(d),
		Input:      path,
		Output:     outDir,
		Total:      res.TotalFiles,
		Successful: res.Successful,
		Failed:     res.Failed,
		Errors:     res.Errors,
	})
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		if err := printJSON(res); err != nil {
			return err
		}
	}
	if res.HasFailures() {
		return fmt.Errorf("%d item(s) failed decoding", res.Failed)
	}
	return nil
}

func init() {
	batchCmd.Flags().String("domain", "", "image, pdf or sheet (default: from the first input's extension)")
	batchCmd.Flags().String("mode", "json", "separate, json, csv, xml, yaml or txt")
	batchCmd.Flags().StringP("output", "o", "", "aggregate file, or directory for separate mode (default: <domain>-batch.<mode>)")
	addEncodeFlags(batchCmd)

	expandCmd.Flags().String("domain", "", "image, pdf or sheet (default: from the aggregate's type tag)")
	expandCmd.Flags().String("output-dir", "expanded", "directory for the decoded files")
	expandCmd.Flags().String("format", "", "spreadsheet output format: xlsx, xlsm, ods or csv (default from config)")

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(expandCmd)
}
