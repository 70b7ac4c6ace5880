// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/pkg/types"
)

func writePDF(t *testing.T, text string) string {
	t.Helper()
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "hello.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestPlainTextExtract(t *testing.T) {
	path := writePDF(t, "Hello World")

	res, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Text, "Hello")
}

func TestPlainTextExtract_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := New().Extract(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, types.ErrNotFound)

	bogus := filepath.Join(dir, "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf at all"), 0o644))
	_, err = New().Extract(context.Background(), bogus)
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
}

func TestResultWordCount(t *testing.T) {
	assert.Equal(t, 0, Result{Text: "  \n"}.WordCount())
	assert.Equal(t, 3, Result{Text: "one two\nthree "}.WordCount())
}

func TestSafely(t *testing.T) {
	err := safely(func() error { panic("malformed stream") })
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "malformed stream")

	sentinel := fmt.Errorf("boom")
	assert.Equal(t, sentinel, safely(func() error { return sentinel }))
	assert.NoError(t, safely(func() error { return nil }))
}
