// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs codec adapters over lists of files. The forward engine
// encodes N inputs into N text files or one aggregate artifact; the reverse
// engine expands a JSON aggregate back into binary files. Both isolate
// per-item failures: a bad input is recorded and the loop moves on.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/pkg/types"
)

// Mode selects how a forward batch materialises its output.
type Mode string

const (
	// ModeSeparate writes one text file per successful input into a directory.
	ModeSeparate Mode = "separate"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeXML      Mode = "xml"
	// ModeTXT writes all payloads into one text file under "# filename" headers.
	ModeTXT  Mode = "txt"
	ModeYAML Mode = "yaml"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeSeparate, ModeJSON, ModeCSV, ModeXML, ModeTXT, ModeYAML}

// ParseMode maps a user-supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q: %w", s, types.ErrUnsupported)
}

// Extension returns the file extension a mode writes.
func (m Mode) Extension() string {
	if m == ModeSeparate {
		return ""
	}
	return "." + string(m)
}

// separateExt is the per-item text extension used by ModeSeparate.
func separateExt(d types.Domain) string {
	if d == types.DomainSheet {
		return ".json"
	}
	return ".b64"
}

// Request describes one forward batch.
type Request struct {
	Domain types.Domain
	// Inputs are file paths; directories are replaced by the supported
	// files they contain, sorted by name.
	Inputs []string
	Mode   Mode
	// Output is the aggregate file path, or the target directory for
	// ModeSeparate.
	Output string
	Encode codec.EncodeOptions
}

// Success is one input that encoded cleanly.
type Success struct {
	Index    int
	Filename string
	Artifact types.TextArtifact
}

// Result holds the outcome of a forward batch.
type Result struct {
	Success     bool              `json:"success" yaml:"success"`
	Mode        Mode              `json:"mode" yaml:"mode"`
	BatchID     string            `json:"batchId" yaml:"batch_id"`
	OutputPath  string            `json:"outputPath,omitempty" yaml:"output_path,omitempty"`
	OutputPaths []string          `json:"outputPaths,omitempty" yaml:"output_paths,omitempty"`
	TotalFiles  int               `json:"totalFiles" yaml:"total_files"`
	Successful  int               `json:"successful" yaml:"successful"`
	Failed      int               `json:"failed" yaml:"failed"`
	Errors      []types.ItemError `json:"errors" yaml:"errors"`

	Items []Success `json:"-" yaml:"-"`
}

// Total returns the number of inputs processed.
func (r Result) Total() int {
	return r.Successful + r.Failed
}

// HasFailures reports whether any input failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Engine drives codec adapters over batches of files. Progress lines are
// written to the engine's writer as items complete.
type Engine struct {
	registry *codec.Registry
	w        io.Writer

	// OnProgress, when set, is called after each item with the number of
	// items done and the total.
	OnProgress func(done, total int)

	now   func() time.Time
	newID func() string
}

// NewEngine returns an engine using the adapters in registry and writing
// progress to w (io.Discard when nil).
func NewEngine(registry *codec.Registry, w io.Writer) *Engine {
	if w == nil {
		w = io.Discard
	}
	return &Engine{
		registry: registry,
		w:        w,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Run encodes every input in order. Item failures are collected in the
// result; only engine faults (unknown mode or domain, an unwritable
// destination, a cancelled context) are returned as errors.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	adapter, err := e.registry.Lookup(req.Domain)
	if err != nil {
		return Result{}, err
	}
	if req.Mode, err = ParseMode(string(req.Mode)); err != nil {
		return Result{}, err
	}
	if req.Output == "" {
		return Result{}, fmt.Errorf("output path is required: %w", types.ErrEmptyInput)
	}
	inputs, err := fsutil.ExpandInputs(req.Inputs, adapter.Extensions())
	if err != nil {
		return Result{}, err
	}
	if len(inputs) == 0 {
		return Result{}, fmt.Errorf("no input files: %w", types.ErrEmptyInput)
	}

	res := Result{
		Mode:       req.Mode,
		BatchID:    e.newID(),
		TotalFiles: len(inputs),
		Errors:     []types.ItemError{},
	}
	metrics.BatchesTotal.WithLabelValues("forward", string(req.Mode)).Inc()
	slog.Debug("batch started", "batch", res.BatchID, "domain", req.Domain, "mode", req.Mode, "inputs", len(inputs))

	for i, path := range inputs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("batch cancelled after %d of %d files: %w", i, len(inputs), err)
		}
		name := filepath.Base(path)

		start := time.Now()
		art, err := adapter.Encode(ctx, path, req.Encode)
		metrics.ConversionDuration.WithLabelValues(string(req.Domain), "encode").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ConversionsTotal.WithLabelValues(string(req.Domain), "encode", "error").Inc()
			res.Errors = append(res.Errors, types.ItemError{Index: i, Filename: name, Path: path, Message: err.Error()})
			res.Failed++
			fmt.Fprintf(e.w, "failed:  %s (%v)\n", name, err)
		} else {
			metrics.ConversionsTotal.WithLabelValues(string(req.Domain), "encode", "ok").Inc()
			res.Successful++
			if req.Mode == ModeSeparate {
				out := filepath.Join(req.Output, fsutil.SanitizeName(fsutil.Stem(name))+separateExt(req.Domain))
				if err := fsutil.WriteFileAtomic(out, []byte(art.Payload)); err != nil {
					return res, fmt.Errorf("writing %s: %w", out, err)
				}
				res.OutputPaths = append(res.OutputPaths, out)
			} else {
				res.Items = append(res.Items, Success{Index: i, Filename: name, Artifact: art})
			}
			fmt.Fprintf(e.w, "encoded: %s\n", name)
		}
		if e.OnProgress != nil {
			e.OnProgress(i+1, len(inputs))
		}
	}

	if req.Mode != ModeSeparate {
		agg := e.aggregate(req, res)
		data, err := Render(agg, req.Mode)
		if err != nil {
			return res, err
		}
		if err := fsutil.WriteFileAtomic(req.Output, data); err != nil {
			return res, err
		}
		res.OutputPath = req.Output
	}

	res.Success = true
	fmt.Fprintf(e.w, "\nBatch summary: %d encoded, %d failed (total: %d)\n", res.Successful, res.Failed, res.Total())
	return res, nil
}

// aggregate builds the aggregate artifact for a completed forward batch.
func (e *Engine) aggregate(req Request, res Result) Aggregate {
	h := Header{
		Type:            req.Domain.Tag(),
		BatchID:         res.BatchID,
		Created:         e.now(),
		TotalFiles:      res.TotalFiles,
		Successful:      res.Successful,
		Failed:          res.Failed,
		IncludeMimeType: req.Encode.IncludeMIME,
		Errors:          res.Errors,
	}

	switch req.Domain {
	case types.DomainImage:
		b := &ImageBatch{Header: h, Images: []ImageItem{}}
		for _, s := range res.Items {
			b.Images = append(b.Images, imageItem(s))
		}
		return b
	case types.DomainSheet:
		b := &SheetBatch{Header: h, Files: []SheetItem{}}
		for _, s := range res.Items {
			b.Files = append(b.Files, sheetItem(s))
		}
		return b
	default:
		b := &DocumentBatch{Header: h, Items: []DocumentItem{}}
		for _, s := range res.Items {
			b.Items = append(b.Items, documentItem(s))
		}
		return b
	}
}

func imageItem(s Success) ImageItem {
	a := s.Artifact
	it := ImageItem{
		Index:        s.Index,
		Filename:     s.Filename,
		OriginalPath: a.SourcePath,
		Format:       a.Format,
		Size:         a.Size,
		SizeKB:       types.SizeKB(a.Size),
		SizeMB:       types.SizeMB(a.Size),
		Base64:       a.Payload,
	}
	if a.Image != nil {
		it.Width, it.Height, it.Channels = a.Image.Width, a.Image.Height, a.Image.Channels
	}
	return it
}

func sheetItem(s Success) SheetItem {
	a := s.Artifact
	it := SheetItem{
		Index:        s.Index,
		Filename:     s.Filename,
		OriginalPath: a.SourcePath,
		Data:         []types.Record{},
		Size:         a.Size,
		SizeKB:       types.SizeKB(a.Size),
		SizeMB:       types.SizeMB(a.Size),
	}
	if sh := a.Sheet; sh != nil {
		it.SheetName = sh.SheetName
		it.AvailableSheets = sh.SheetNames
		it.Columns = sh.Columns
		it.Data = sh.Records
		it.RowCount = sh.RowCount
		it.ColumnCount = sh.ColumnCount
	}
	return it
}

func documentItem(s Success) DocumentItem {
	a := s.Artifact
	return DocumentItem{
		Index:        s.Index,
		Filename:     s.Filename,
		OriginalPath: a.SourcePath,
		Format:       a.Format,
		MimeType:     a.MIMEHint,
		Size:         a.Size,
		SizeKB:       types.SizeKB(a.Size),
		SizeMB:       types.SizeMB(a.Size),
		Base64:       a.Payload,
	}
}
