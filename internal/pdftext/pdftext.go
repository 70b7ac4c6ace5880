// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts plain text from PDF documents.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

// Result is the text of a document and the number of pages it was read from.
type Result struct {
	Text      string
	PageCount int
}

// WordCount returns the number of whitespace-separated words in the text.
func (r Result) WordCount() int {
	return len(strings.Fields(r.Text))
}

// Extractor turns the PDF at path into plain text. The text cache and query
// service depend on this interface so tests can substitute a fake.
type Extractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// PlainText extracts page text with github.com/ledongthuc/pdf.
type PlainText struct{}

// New returns the default extractor.
func New() *PlainText { return &PlainText{} }

// Extract reads every page in order, separating pages with a newline. A page
// that fails to extract is logged and skipped so one bad page does not lose
// the rest of the document. The PDF library panics on some malformed content
// streams; a panic while opening the document is reported as
// types.ErrInvalidFormat and a panic on a single page skips that page.
func (p *PlainText) Extract(ctx context.Context, path string) (Result, error) {
	if _, err := fsutil.StatFile(path); err != nil {
		return Result{}, err
	}

	var (
		f     *os.File
		r     *pdf.Reader
		total int
	)
	err := safely(func() error {
		var err error
		if f, r, err = pdf.Open(path); err != nil {
			return err
		}
		total = r.NumPage()
		return nil
	})
	if err != nil {
		if f != nil {
			f.Close()
		}
		return Result{}, fmt.Errorf("opening PDF %s: %w", path, asInvalid(err))
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		var text string
		err := safely(func() error {
			page := r.Page(i)
			if page.V.IsNull() {
				return nil
			}
			var err error
			text, err = page.GetPlainText(nil)
			return err
		})
		if err != nil {
			slog.Warn("pdf page text extraction failed", "path", path, "page", i, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return Result{Text: b.String(), PageCount: total}, nil
}

// safely runs fn and turns a panic into an error wrapping types.ErrInvalidFormat.
func safely(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v: %w", rec, types.ErrInvalidFormat)
		}
	}()
	return fn()
}

func asInvalid(err error) error {
	if errors.Is(err, types.ErrInvalidFormat) {
		return err
	}
	return fmt.Errorf("%v: %w", err, types.ErrInvalidFormat)
}
