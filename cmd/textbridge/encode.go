// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/pkg/types"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <file>",
	Short: "Encode an image, PDF or spreadsheet as text",
	Long: `Encode reads one file and prints its text form: Base64 for images and
PDFs, JSON records for spreadsheets. The adapter is chosen by extension.
Use --output to write the text to a file instead of stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

// encodeResult is the --json shape of encode.
type encodeResult struct {
	Success        bool             `json:"success"`
	SourceFilename string           `json:"fileName"`
	Format         string           `json:"format"`
	MimeType       string           `json:"mimeType,omitempty"`
	Size           int64            `json:"size"`
	SizeKB         string           `json:"sizeKB"`
	SizeMB         string           `json:"sizeMB"`
	Image          *types.ImageInfo `json:"image,omitempty"`
	Sheet          *types.SheetInfo `json:"sheet,omitempty"`
	OutputPath     string           `json:"outputPath,omitempty"`
	Payload        string           `json:"payload,omitempty"`
}

func runEncode(cmd *cobra.Command, args []string) error {
	path := args[0]
	output, _ := cmd.Flags().GetString("output")

	adapter, err := codec.DefaultRegistry().ForPath(path)
	if err != nil {
		return err
	}
	opts := encodeOptions(cmd, adapter.Domain())

	start := time.Now()
	art, err := adapter.Encode(cmd.Context(), path, opts)
	observe(adapter.Domain(), "encode", start, err)
	entry := history.Entry{Operation: history.OpEncode, Domain: string(adapter.Domain()), Input: path, Output: output, Total: 1}
	if err != nil {
		entry.Failed = 1
		entry.Errors = []types.ItemError{{Filename: filepath.Base(path), Path: path, Message: err.Error()}}
		record(cmd.Context(), entry)
		return err
	}
	entry.Successful = 1
	record(cmd.Context(), entry)

	if output != "" {
		if err := fsutil.WriteFileAtomic(output, []byte(art.Payload)); err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		res := encodeResult{
			Success:        true,
			SourceFilename: art.SourceFilename,
			Format:         art.Format,
			MimeType:       art.MIMEHint,
			Size:           art.Size,
			SizeKB:         types.SizeKB(art.Size),
			SizeMB:         types.SizeMB(art.Size),
			Image:          art.Image,
			Sheet:          art.Sheet,
			OutputPath:     output,
		}
		if output == "" {
			res.Payload = art.Payload
		}
		if res.Sheet != nil {
			// The records are already the payload.
			sheet := *res.Sheet
			sheet.Records = nil
			res.Sheet = &sheet
		}
		return printJSON(res)
	}

	if output == "" {
		fmt.Fprintln(os.Stdout, art.Payload)
		return nil
	}
	fmt.Fprintf(os.Stdout, "encoded: %s -> %s (%s KB)\n", art.SourceFilename, output, types.SizeKB(art.Size))
	return nil
}

// encodeOptions merges the configured defaults for d with explicit flags.
func encodeOptions(cmd *cobra.Command, d types.Domain) codec.EncodeOptions {
	opts := codec.EncodeOptions{
		Quality:  cfg.Image.Quality,
		Optimize: cfg.Image.Optimize,
		Strict:   cfg.PDF.Strict,
	}
	switch d {
	case types.DomainImage:
		opts.IncludeMIME = cfg.Image.IncludeMIME
	case types.DomainPDF:
		opts.IncludeMIME = cfg.PDF.IncludeMIME
	}

	f := cmd.Flags()
	if f.Changed("mime") {
		opts.IncludeMIME, _ = f.GetBool("mime")
	}
	if f.Changed("quality") {
		opts.Quality, _ = f.GetInt("quality")
	}
	if f.Changed("optimize") {
		opts.Optimize, _ = f.GetBool("optimize")
	}
	if f.Changed("strict") {
		opts.Strict, _ = f.GetBool("strict")
	}
	opts.SheetName, _ = f.GetString("sheet")

	width, _ := f.GetInt("width")
	height, _ := f.GetInt("height")
	if width > 0 || height > 0 {
		upscale, _ := f.GetBool("upscale")
		opts.Resize = &codec.Resize{Width: width, Height: height, AllowUpscale: upscale}
	}
	return opts
}

// addEncodeFlags registers the flags shared by encode and batch.
func addEncodeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("mime", false, "wrap Base64 output in a data URL (default from config)")
	cmd.Flags().Int("width", 0, "fit images into this width before encoding")
	cmd.Flags().Int("height", 0, "fit images into this height before encoding")
	cmd.Flags().Bool("upscale", false, "allow resizing to enlarge images")
	cmd.Flags().Int("quality", 0, "JPEG quality 1-100 when an image is re-encoded (default from config)")
	cmd.Flags().Bool("optimize", false, "maximum compression for lossless re-encodes")
	cmd.Flags().Bool("strict", false, "run full PDF structural validation")
	cmd.Flags().String("sheet", "", "worksheet to read (default: first sheet)")
}

// observe records one single-file conversion in the metrics registry.
func observe(d types.Domain, direction string, start time.Time, err error) {
	metrics.ConversionDuration.WithLabelValues(string(d), direction).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ConversionsTotal.WithLabelValues(string(d), direction, status).Inc()
}

func init() {
	encodeCmd.Flags().StringP("output", "o", "", "write the text to this file instead of stdout")
	addEncodeFlags(encodeCmd)

	rootCmd.AddCommand(encodeCmd)
}
