// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/pkg/types"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <text-file|->",
	Short: "Decode Base64 or JSON records back into a file",
	Long: `Decode reads text (from a file, or stdin with "-") and writes the binary
file it describes. The adapter is chosen by --domain or by the extension of
--output. Images are converted when the output extension names a different
format. An existing output file is never overwritten unless --force is set;
a free name of the form name_1.ext is used instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

// decodeResult is the --json shape of decode.
type decodeResult struct {
	Success  bool             `json:"success"`
	Path     string           `json:"outputPath"`
	FileName string           `json:"fileName"`
	Format   string           `json:"format"`
	Size     int64            `json:"size"`
	SizeKB   string           `json:"sizeKB"`
	SizeMB   string           `json:"sizeMB"`
	Image    *types.ImageInfo `json:"image,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return fmt.Errorf("--output is required: %w", types.ErrEmptyInput)
	}

	text, err := readText(args[0])
	if err != nil {
		return err
	}

	adapter, err := adapterFor(cmd, output)
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if output, err = fsutil.UniquePath(output); err != nil {
			return err
		}
	}

	opts := codec.DecodeOptions{Quality: cfg.Image.Quality, Optimize: cfg.Image.Optimize, SheetName: cfg.Sheet.DefaultSheet}
	f := cmd.Flags()
	if f.Changed("quality") {
		opts.Quality, _ = f.GetInt("quality")
	}
	if f.Changed("optimize") {
		opts.Optimize, _ = f.GetBool("optimize")
	}
	if f.Changed("sheet") {
		opts.SheetName, _ = f.GetString("sheet")
	}
	opts.Reencode, _ = f.GetBool("reencode")

	start := time.Now()
	bin, err := adapter.Decode(cmd.Context(), text, output, opts)
	observe(adapter.Domain(), "decode", start, err)
	entry := history.Entry{Operation: history.OpDecode, Domain: string(adapter.Domain()), Input: args[0], Output: output, Total: 1}
	if err != nil {
		entry.Failed = 1
		entry.Errors = []types.ItemError{{Filename: filepath.Base(output), Message: err.Error()}}
		record(cmd.Context(), entry)
		return err
	}
	entry.Successful = 1
	record(cmd.Context(), entry)

	if jsonOutput(cmd) {
		return printJSON(decodeResult{
			Success:  true,
			Path:     bin.Path,
			FileName: filepath.Base(bin.Path),
			Format:   bin.DeclaredFormat,
			Size:     bin.Size,
			SizeKB:   types.SizeKB(bin.Size),
			SizeMB:   types.SizeMB(bin.Size),
			Image:    bin.Image,
		})
	}
	fmt.Fprintf(os.Stdout, "decoded: %s (%s, %s KB)\n", bin.Path, bin.DeclaredFormat, types.SizeKB(bin.Size))
	return nil
}

// readText returns the contents of path, or of stdin when path is "-".
func readText(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, _, err := fsutil.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// adapterFor picks the adapter named by --domain, or the one matching path.
func adapterFor(cmd *cobra.Command, path string) (codec.Adapter, error) {
	registry := codec.DefaultRegistry()
	name, _ := cmd.Flags().GetString("domain")
	if name == "" {
		return registry.ForPath(path)
	}
	d, err := types.ParseDomain(name)
	if err != nil {
		return nil, err
	}
	return registry.Lookup(d)
}

func init() {
	decodeCmd.Flags().StringP("output", "o", "", "file to write (required)")
	decodeCmd.Flags().String("domain", "", "image, pdf or sheet (default: from the output extension)")
	decodeCmd.Flags().Bool("force", false, "overwrite an existing output file")
	decodeCmd.Flags().Int("quality", 0, "JPEG quality 1-100 when an image is re-encoded (default from config)")
	decodeCmd.Flags().Bool("optimize", false, "maximum compression for lossless re-encodes")
	decodeCmd.Flags().Bool("reencode", false, "re-encode images even when the format already matches")
	decodeCmd.Flags().String("sheet", "", "worksheet name for spreadsheet output (default from config)")

	rootCmd.AddCommand(decodeCmd)
}
