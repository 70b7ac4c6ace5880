// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/pkg/types"
)

// summaryLimit is the number of error messages Summary lists in full.
const summaryLimit = 3

// ExpandOptions tunes a reverse batch.
type ExpandOptions struct {
	// Format is the spreadsheet file format written for excel-json-batch
	// items: xlsx (default), xlsm, ods or csv. Ignored for other domains.
	Format string

	Decode codec.DecodeOptions
}

// ExpandedFile describes one file written by Expand.
type ExpandedFile struct {
	OriginalFilename string `json:"originalFilename" yaml:"original_filename"`
	OutputPath       string `json:"outputPath" yaml:"output_path"`
	OutputFilename   string `json:"outputFilename" yaml:"output_filename"`
	Format           string `json:"format" yaml:"format"`
	Size             int64  `json:"size" yaml:"size"`
	SizeKB           string `json:"sizeKB" yaml:"size_kb"`
	SizeMB           string `json:"sizeMB" yaml:"size_mb"`
}

// ReverseResult holds the outcome of Expand. Skipped counts entries that
// carried no filename or no payload; they are neither successes nor errors.
type ReverseResult struct {
	Success    bool              `json:"success" yaml:"success"`
	OutputDir  string            `json:"outputDir" yaml:"output_dir"`
	TotalFiles int               `json:"totalFiles" yaml:"total_files"`
	Successful int               `json:"successful" yaml:"successful"`
	Failed     int               `json:"failed" yaml:"failed"`
	Skipped    int               `json:"skipped" yaml:"skipped"`
	Results    []ExpandedFile    `json:"results" yaml:"results"`
	Errors     []types.ItemError `json:"errors" yaml:"errors"`
}

// HasFailures reports whether any entry failed to decode.
func (r ReverseResult) HasFailures() bool {
	return r.Failed > 0
}

// Summary renders the counts and the first few error messages, with the
// remainder counted.
func (r ReverseResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d expanded, %d failed, %d skipped (total: %d)", r.Successful, r.Failed, r.Skipped, r.TotalFiles)
	if len(r.Errors) == 0 {
		return b.String()
	}
	b.WriteString("\nErrors:")
	for _, e := range r.Errors[:min(len(r.Errors), summaryLimit)] {
		fmt.Fprintf(&b, "\n- %s: %s", e.Filename, e.Message)
	}
	if extra := len(r.Errors) - summaryLimit; extra > 0 {
		fmt.Fprintf(&b, "\n... and %d more", extra)
	}
	return b.String()
}

// entry is one aggregate item reduced to what decoding needs.
type entry struct {
	index    int
	filename string
	format   string
	payload  string
	present  bool
	sheet    *SheetItem
}

// Expand reads the aggregate at aggregatePath, checks that it is the
// variant for domain d, and decodes every item into outputDir. Nothing is
// written until the aggregate has passed validation. Output names that
// already exist get a _N suffix.
func (e *Engine) Expand(ctx context.Context, aggregatePath, outputDir string, d types.Domain, opts ExpandOptions) (ReverseResult, error) {
	adapter, err := e.registry.Lookup(d)
	if err != nil {
		return ReverseResult{}, err
	}
	sheetExt, err := sheetExtension(d, opts.Format)
	if err != nil {
		return ReverseResult{}, err
	}
	data, _, err := fsutil.ReadFile(aggregatePath)
	if err != nil {
		return ReverseResult{}, err
	}
	agg, err := DecodeAggregate(data, d)
	if err != nil {
		return ReverseResult{}, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return ReverseResult{}, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	entries := entriesOf(agg)
	res := ReverseResult{
		OutputDir:  outputDir,
		TotalFiles: len(entries),
		Results:    []ExpandedFile{},
		Errors:     []types.ItemError{},
	}
	metrics.BatchesTotal.WithLabelValues("reverse", string(d)).Inc()

	for i, it := range entries {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("expand cancelled after %d of %d items: %w", i, len(entries), err)
		}
		e.expandOne(ctx, adapter, d, it, outputDir, sheetExt, opts.Decode, &res)
		if e.OnProgress != nil {
			e.OnProgress(i+1, len(entries))
		}
	}

	res.Success = true
	fmt.Fprintf(e.w, "\n%s\n", res.Summary())
	return res, nil
}

// expandOne decodes a single entry and records the outcome in res.
func (e *Engine) expandOne(ctx context.Context, adapter codec.Adapter, d types.Domain, it entry, outputDir, sheetExt string, dopts codec.DecodeOptions, res *ReverseResult) {
	if it.filename == "" || !it.present {
		res.Skipped++
		fmt.Fprintf(e.w, "skipped: item %d (missing filename or payload)\n", it.index)
		return
	}

	out, err := fsutil.UniquePath(filepath.Join(outputDir, outputName(d, it, sheetExt)))
	if err != nil {
		e.recordFailure(d, it, err, res)
		return
	}
	if it.sheet != nil {
		dopts.SheetName, dopts.Columns = it.sheet.SheetName, it.sheet.Columns
	}

	start := time.Now()
	bin, err := adapter.Decode(ctx, it.payload, out, dopts)
	metrics.ConversionDuration.WithLabelValues(string(d), "decode").Observe(time.Since(start).Seconds())
	if err != nil {
		e.recordFailure(d, it, err, res)
		return
	}

	metrics.ConversionsTotal.WithLabelValues(string(d), "decode", "ok").Inc()
	res.Successful++
	res.Results = append(res.Results, ExpandedFile{
		OriginalFilename: it.filename,
		OutputPath:       bin.Path,
		OutputFilename:   filepath.Base(bin.Path),
		Format:           bin.DeclaredFormat,
		Size:             bin.Size,
		SizeKB:           types.SizeKB(bin.Size),
		SizeMB:           types.SizeMB(bin.Size),
	})
	fmt.Fprintf(e.w, "expanded: %s -> %s\n", it.filename, filepath.Base(bin.Path))
}

func entriesOf(agg Aggregate) []entry {
	var out []entry
	switch b := agg.(type) {
	case *ImageBatch:
		for _, it := range b.Images {
			out = append(out, entry{index: it.Index, filename: it.Filename, format: it.Format, payload: it.Base64, present: it.Base64 != ""})
		}
	case *DocumentBatch:
		for _, it := range b.Items {
			out = append(out, entry{index: it.Index, filename: it.Filename, format: it.Format, payload: it.Base64, present: it.Base64 != ""})
		}
	case *SheetBatch:
		for _, it := range b.Files {
			// A present but empty data array is decoded and fails; an absent
			// one is skipped.
			var payload []byte
			if it.Data != nil {
				payload, _ = json.Marshal(it.Data)
			}
			out = append(out, entry{index: it.Index, filename: it.Filename, payload: string(payload), present: it.Data != nil, sheet: &it})
		}
	}
	return out
}

// outputName derives the file name for an entry. Images keep a recognised
// extension or take one from the declared format; documents always end in
// .pdf; sheets take the requested workbook extension.
func outputName(d types.Domain, it entry, sheetExt string) string {
	switch d {
	case types.DomainImage:
		stem := fsutil.SanitizeName(fsutil.Stem(it.filename))
		if codec.ImageFormatForPath(it.filename) != "" {
			return stem + strings.ToLower(filepath.Ext(it.filename))
		}
		if ext := codec.ImageExtension(it.format); ext != "" {
			return stem + ext
		}
		if it.format != "" {
			return stem + "." + strings.ToLower(it.format)
		}
		return stem + ".png"
	case types.DomainSheet:
		return fsutil.SanitizeName(fsutil.Stem(it.filename)) + sheetExt
	default:
		name := fsutil.SanitizeName(filepath.Base(it.filename))
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			name += ".pdf"
		}
		return name
	}
}

func sheetExtension(d types.Domain, format string) (string, error) {
	if d != types.DomainSheet {
		return "", nil
	}
	if format == "" {
		format = "xlsx"
	}
	ext := "." + strings.ToLower(strings.TrimPrefix(format, "."))
	if _, err := codec.SheetWriteFormat("x" + ext); err != nil {
		return "", err
	}
	return ext, nil
}

func (e *Engine) recordFailure(d types.Domain, it entry, err error, res *ReverseResult) {
	metrics.ConversionsTotal.WithLabelValues(string(d), "decode", "error").Inc()
	res.Errors = append(res.Errors, types.ItemError{Index: it.index, Filename: it.filename, Message: err.Error()})
	res.Failed++
	fmt.Fprintf(e.w, "failed:  %s (%v)\n", it.filename, err)
}
