// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/internal/batch"
	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/pkg/types"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEXTBRIDGE_QUERY_MODEL", "gpt-4o-mini")
	initConfig()

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 95, c.Image.Quality)
	assert.Equal(t, "Sheet1", c.Sheet.DefaultSheet)
	assert.Equal(t, "xlsx", c.Sheet.ExpandFormat)
	assert.Equal(t, 500, c.Query.MaxTokens)
	assert.InDelta(t, 0.7, c.Query.Temperature, 1e-9)
	assert.Equal(t, 10, c.Query.CacheCapacity)
	assert.Equal(t, "gpt-4o-mini", c.Query.Model, "environment overrides defaults")
}

func TestDefaultBatchOutput(t *testing.T) {
	assert.Equal(t, "image-batch.json", defaultBatchOutput(types.DomainImage, batch.ModeJSON))
	assert.Equal(t, "sheet-batch.csv", defaultBatchOutput(types.DomainSheet, batch.ModeCSV))
	assert.Equal(t, "pdf-text", defaultBatchOutput(types.DomainPDF, batch.ModeSeparate))
}

func TestBatchThenExpand(t *testing.T) {
	dir := t.TempDir()
	histDir := filepath.Join(dir, "history")
	t.Setenv("TEXTBRIDGE_HISTORY_DIR", histDir)

	src := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(src, 0o755))
	writePNG(t, filepath.Join(src, "a.png"))
	writePNG(t, filepath.Join(src, "b.png"))

	agg := filepath.Join(dir, "images.json")
	require.NoError(t, execute(t, "batch", src, "--mode", "json", "--output", agg))
	require.FileExists(t, agg)

	out := filepath.Join(dir, "out")
	require.NoError(t, execute(t, "expand", agg, "--output-dir", out))

	for _, name := range []string{"a.png", "b.png"} {
		want, err := os.ReadFile(filepath.Join(src, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	store, err := history.Open(histDir)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.List(t.Context(), history.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.OpExpand, entries[0].Operation)
	assert.Equal(t, history.OpBatch, entries[1].Operation)
	assert.Equal(t, 2, entries[1].Successful)
}

func TestAskRequiresQuestion(t *testing.T) {
	t.Setenv("TEXTBRIDGE_HISTORY_ENABLED", "false")
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))

	err := execute(t, "ask", path)
	assert.ErrorIs(t, err, types.ErrEmptyInput)
}
