// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/internal/codec"
	"github.com/pdiddy/textbridge/pkg/types"
)

func TestExpand_ImageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 4, 4)
	b := writePNG(t, dir, "b.png", 2, 3)
	e := newTestEngine(&bytes.Buffer{})

	agg := filepath.Join(dir, "batch.json")
	_, err := e.Run(context.Background(), Request{
		Domain: types.DomainImage, Inputs: []string{a, b}, Mode: ModeJSON, Output: agg,
		Encode: codec.EncodeOptions{IncludeMIME: true},
	})
	require.NoError(t, err)

	outDir := filepath.Join(dir, "restored")
	res, err := e.Expand(context.Background(), agg, outDir, types.DomainImage, ExpandOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 2, res.Successful)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Skipped)

	for _, src := range []string{a, b} {
		orig, err := os.ReadFile(src)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(outDir, filepath.Base(src)))
		require.NoError(t, err)
		assert.Equal(t, orig, got)
	}

	// Expanding again into the same directory does not overwrite.
	res, err = e.Expand(context.Background(), agg, outDir, types.DomainImage, ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a_1.png", res.Results[0].OutputFilename)
}

func TestExpand_UnwritableOutputDir(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "a.png", 2, 2)
	e := newTestEngine(&bytes.Buffer{})

	agg := filepath.Join(dir, "batch.json")
	_, err := e.Run(context.Background(), Request{Domain: types.DomainImage, Inputs: []string{src}, Mode: ModeJSON, Output: agg})
	require.NoError(t, err)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	type outcome struct {
		res ReverseResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Expand(context.Background(), agg, filepath.Join(blocker, "out"), types.DomainImage, ExpandOptions{})
		done <- outcome{res, err}
	}()

	select {
	case got := <-done:
		require.Error(t, got.err)
		assert.False(t, got.res.Success)
		assert.Zero(t, got.res.Successful)
	case <-time.After(5 * time.Second):
		t.Fatal("Expand did not return for an output directory under a regular file")
	}
}

func TestExpand_SchemaMismatchWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong tag", `{"type":"excel-json-batch","images":[]}`},
		{"missing tag", `{"images":[{"filename":"a.png","base64":"QUJD"}]}`},
		{"tag not a string", `{"type":7,"images":[]}`},
		{"missing array", `{"type":"image-base64-batch"}`},
		{"array is an object", `{"type":"image-base64-batch","images":{"a":1}}`},
		{"array is null", `{"type":"image-base64-batch","images":null}`},
		{"not an object", `[1,2,3]`},
		{"not json", `type: image-base64-batch`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "agg.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			outDir := filepath.Join(dir, "out")

			_, err := newTestEngine(&bytes.Buffer{}).Expand(context.Background(), path, outDir, types.DomainImage, ExpandOptions{})
			assert.ErrorIs(t, err, types.ErrSchemaMismatch)
			assert.NoDirExists(t, outDir)
		})
	}
}

func TestExpand_SkipsIncompleteItems(t *testing.T) {
	dir := t.TempDir()
	png := writePNG(t, dir, "src.png", 1, 1)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	good := codec.EncodeText(data, false, "")

	doc := fmt.Sprintf(`{
  "type": "image-base64-batch",
  "images": [
    {"index": 0, "filename": "good", "format": "PNG", "base64": %q},
    {"index": 1, "base64": %q},
    {"index": 2, "filename": "nopayload.png"},
    {"index": 3, "filename": "broken.png", "base64": "@@@@"}
  ]
}`, good, good)
	path := filepath.Join(dir, "agg.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	var log bytes.Buffer
	outDir := filepath.Join(dir, "out")
	res, err := newTestEngine(&log).Expand(context.Background(), path, outDir, types.DomainImage, ExpandOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalFiles)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "broken.png", res.Errors[0].Filename)
	assert.Equal(t, 3, res.Errors[0].Index)
	assert.FileExists(t, filepath.Join(outDir, "good.png"), "extension derived from the declared format")
	assert.NoFileExists(t, filepath.Join(outDir, "broken.png"))
	assert.Contains(t, log.String(), "skipped: item 1")
}

func TestExpand_Documents(t *testing.T) {
	dir := t.TempDir()
	pdf := codec.EncodeText([]byte("%PDF-1.4\n%%EOF\n"), true, "application/pdf")
	doc := fmt.Sprintf(`{"type":"pdf-base64-batch","items":[
  {"index":0,"filename":"report","base64":%q},
  {"index":1,"filename":"scan.PDF","base64":%q},
  {"index":2,"filename":"fake.pdf","base64":"aGVsbG8="}
]}`, pdf, pdf)
	path := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	outDir := filepath.Join(dir, "out")
	res, err := newTestEngine(&bytes.Buffer{}).Expand(context.Background(), path, outDir, types.DomainPDF, ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.FileExists(t, filepath.Join(outDir, "report.pdf"))
	assert.FileExists(t, filepath.Join(outDir, "scan.PDF"))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "fake.pdf", res.Errors[0].Filename)
	assert.Contains(t, res.Errors[0].Message, "not a valid PDF")

	// An image aggregate is not a document aggregate.
	_, err = newTestEngine(&bytes.Buffer{}).Expand(context.Background(), path, outDir, types.DomainImage, ExpandOptions{})
	assert.ErrorIs(t, err, types.ErrSchemaMismatch)
}

func TestExpand_Sheets(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(src, []byte("name,age\nAda,36\n"), 0o644))
	e := newTestEngine(&bytes.Buffer{})

	agg := filepath.Join(dir, "sheets.json")
	_, err := e.Run(context.Background(), Request{Domain: types.DomainSheet, Inputs: []string{src}, Mode: ModeJSON, Output: agg})
	require.NoError(t, err)

	for _, format := range []string{"csv", "xlsx", "ods"} {
		t.Run(format, func(t *testing.T) {
			outDir := filepath.Join(dir, "out-"+format)
			res, err := e.Expand(context.Background(), agg, outDir, types.DomainSheet, ExpandOptions{Format: format})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Successful)

			out := filepath.Join(outDir, "people."+format)
			info, err := codec.NewSheetAdapter().ReadRecords(out, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "age"}, info.Columns)
			assert.Equal(t, []types.Record{{"name": "Ada", "age": "36"}}, info.Records)
		})
	}

	for _, format := range []string{"xls", "xlsb", "numbers"} {
		_, err = e.Expand(context.Background(), agg, filepath.Join(dir, "out-"+format), types.DomainSheet, ExpandOptions{Format: format})
		assert.ErrorIs(t, err, types.ErrUnsupported, format)
		assert.NoDirExists(t, filepath.Join(dir, "out-"+format))
	}
}

func TestReverseResultSummary(t *testing.T) {
	res := ReverseResult{TotalFiles: 7, Successful: 2}
	assert.Equal(t, "2 expanded, 0 failed, 0 skipped (total: 7)", res.Summary())

	for i := range 5 {
		res.Errors = append(res.Errors, types.ItemError{Index: i, Filename: fmt.Sprintf("f%d.png", i), Message: "bad"})
	}
	res.Failed = 5
	s := res.Summary()
	assert.Contains(t, s, "- f0.png: bad")
	assert.Contains(t, s, "- f2.png: bad")
	assert.NotContains(t, s, "f3.png")
	assert.True(t, strings.HasSuffix(s, "... and 2 more"))
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		domain types.Domain
		it     entry
		want   string
	}{
		{types.DomainImage, entry{filename: "photo.JPG"}, "photo.jpg"},
		{types.DomainImage, entry{filename: "photo", format: "JPEG"}, "photo.jpg"},
		{types.DomainImage, entry{filename: "photo.data", format: "webp"}, "photo.webp"},
		{types.DomainImage, entry{filename: "photo"}, "photo.png"},
		{types.DomainImage, entry{filename: "../../etc/x.png"}, "x.png"},
		{types.DomainPDF, entry{filename: "report"}, "report.pdf"},
		{types.DomainPDF, entry{filename: "a:b.pdf"}, "a_b.pdf"},
		{types.DomainSheet, entry{filename: "book.csv"}, "book.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, outputName(tt.domain, tt.it, ".xlsx"))
		})
	}
}

func TestPeekDomain(t *testing.T) {
	tests := []struct {
		doc  string
		want types.Domain
	}{
		{`{"type":"image-base64-batch"}`, types.DomainImage},
		{`{"type":"pdf-base64-batch","items":[]}`, types.DomainPDF},
		{`{"type":"excel-json-batch"}`, types.DomainSheet},
	}
	for _, tt := range tests {
		got, err := PeekDomain([]byte(tt.doc))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{`{}`, `{"type":"zip-batch"}`, `[]`, `nope`} {
		_, err := PeekDomain([]byte(bad))
		assert.ErrorIs(t, err, types.ErrSchemaMismatch, bad)
	}
}
