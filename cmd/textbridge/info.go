// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/pdftext"
	"github.com/pdiddy/textbridge/pkg/types"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Inspect PDF documents",
}

var pdfInfoCmd = &cobra.Command{
	Use:   "info <file.pdf>",
	Short: "Show the version, page count and size of a PDF",
	Long: `Info reports the PDF header version, the page count and the file size.
With --text the document text is extracted and its word count and length
are reported as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runPDFInfo,
}

// pdfInfoResult is the --json shape of pdf info.
type pdfInfoResult struct {
	Success  bool   `json:"success"`
	FileName string `json:"fileName"`
	codec.PDFInfo
	WordCount  *int `json:"wordCount,omitempty"`
	TextLength *int `json:"textLength,omitempty"`
}

func runPDFInfo(cmd *cobra.Command, args []string) error {
	data, _, err := fsutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	info := codec.NewPDFAdapter().Info(data)
	if !info.IsValid {
		return fmt.Errorf("%s is not a valid PDF: %w", filepath.Base(args[0]), types.ErrInvalidFormat)
	}
	res := pdfInfoResult{Success: true, FileName: filepath.Base(args[0]), PDFInfo: info}

	if withText, _ := cmd.Flags().GetBool("text"); withText {
		text, err := pdftext.New().Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		words, length := text.WordCount(), len([]rune(text.Text))
		res.WordCount, res.TextLength = &words, &length
	}

	if jsonOutput(cmd) {
		return printJSON(res)
	}
	fmt.Fprintf(os.Stdout, "File:     %s\n", res.FileName)
	fmt.Fprintf(os.Stdout, "Version:  %s\n", info.Version)
	fmt.Fprintf(os.Stdout, "Pages:    %d\n", info.PageCount)
	fmt.Fprintf(os.Stdout, "Size:     %s KB (%s MB)\n", info.SizeKB, info.SizeMB)
	if res.WordCount != nil {
		fmt.Fprintf(os.Stdout, "Words:    %d\n", *res.WordCount)
		fmt.Fprintf(os.Stdout, "Length:   %d characters\n", *res.TextLength)
	}
	return nil
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Inspect images",
}

var imageInfoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "Show the format, dimensions and size of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runImageInfo,
}

func runImageInfo(cmd *cobra.Command, args []string) error {
	data, _, err := fsutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := codec.NewImageAdapter().Info(data)
	if err != nil {
		return fmt.Errorf("%s is not a valid image: %w", filepath.Base(args[0]), err)
	}
	size := int64(len(data))

	if jsonOutput(cmd) {
		return printJSON(struct {
			Success  bool   `json:"success"`
			FileName string `json:"fileName"`
			types.ImageInfo
			Size   int64  `json:"size"`
			SizeKB string `json:"sizeKB"`
			SizeMB string `json:"sizeMB"`
		}{true, filepath.Base(args[0]), info, size, types.SizeKB(size), types.SizeMB(size)})
	}
	fmt.Fprintf(os.Stdout, "File:       %s\n", filepath.Base(args[0]))
	fmt.Fprintf(os.Stdout, "Format:     %s\n", info.Format)
	fmt.Fprintf(os.Stdout, "Dimensions: %dx%d\n", info.Width, info.Height)
	fmt.Fprintf(os.Stdout, "Channels:   %d\n", info.Channels)
	fmt.Fprintf(os.Stdout, "Size:       %s KB (%s MB)\n", types.SizeKB(size), types.SizeMB(size))
	return nil
}

func init() {
	pdfInfoCmd.Flags().Bool("text", false, "also extract the text and report word count and length")
	pdfCmd.AddCommand(pdfInfoCmd)
	imageCmd.AddCommand(imageInfoCmd)

	rootCmd.AddCommand(pdfCmd)
	rootCmd.AddCommand(imageCmd)
}
