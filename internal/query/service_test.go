// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/internal/pdftext"
	"github.com/pdiddy/textbridge/internal/textcache"
	"github.com/pdiddy/textbridge/pkg/types"
)

// fakeCompleter records requests and replies with a fixed completion.
type fakeCompleter struct {
	reqs []CompletionRequest
	resp Completion
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeExtractor struct {
	text  string
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string) (pdftext.Result, error) {
	f.calls++
	return pdftext.Result{Text: f.text, PageCount: 3}, nil
}

func TestAsk_NotInitialized(t *testing.T) {
	s := NewService(types.QueryConfig{}, nil)
	_, err := s.Ask(context.Background(), "text", "question?", Options{})
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = s.ExtractAndAsk(context.Background(), "doc.pdf", "question?", Options{})
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestInitialize(t *testing.T) {
	s := NewService(types.QueryConfig{}, nil)
	assert.ErrorIs(t, s.Initialize(""), types.ErrMissingCredential)
	assert.ErrorIs(t, s.Initialize("   "), types.ErrMissingCredential)
	assert.False(t, s.Initialized())

	require.NoError(t, s.Initialize("sk-test"))
	assert.True(t, s.Initialized())
}

func TestAsk_EmptyInput(t *testing.T) {
	fake := &fakeCompleter{}
	s := NewService(types.QueryConfig{}, nil)
	s.InitializeWith(fake)

	_, err := s.Ask(context.Background(), " \n", "question?", Options{})
	assert.ErrorIs(t, err, types.ErrEmptyInput)
	_, err = s.Ask(context.Background(), "text", "", Options{})
	assert.ErrorIs(t, err, types.ErrEmptyInput)
	assert.Empty(t, fake.reqs)
}

func TestAsk_Settings(t *testing.T) {
	tests := []struct {
		name      string
		cfg       types.QueryConfig
		opts      Options
		wantModel string
		wantMax   int
		wantTemp  float64
	}{
		{"defaults", types.QueryConfig{}, Options{}, DefaultModel, DefaultMaxTokens, DefaultTemperature},
		{"config", types.QueryConfig{Model: "gpt-4o", MaxTokens: 100, Temperature: 0.2}, Options{}, "gpt-4o", 100, 0.2},
		{"options win", types.QueryConfig{Model: "gpt-4o", MaxTokens: 100}, Options{Model: "o1", MaxTokens: 50, Temperature: 1.1}, "o1", 50, 1.1},
		{"zero temperature falls back", types.QueryConfig{}, Options{Temperature: 0}, DefaultModel, DefaultMaxTokens, DefaultTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{resp: Completion{Text: "42"}}
			s := NewService(tt.cfg, nil)
			s.InitializeWith(fake)

			ans, err := s.Ask(context.Background(), "The answer is 42.", "What is the answer?", tt.opts)
			require.NoError(t, err)
			require.Len(t, fake.reqs, 1)

			req := fake.reqs[0]
			assert.Equal(t, tt.wantModel, req.Model)
			assert.Equal(t, tt.wantMax, req.MaxTokens)
			assert.InDelta(t, tt.wantTemp, req.Temperature, 1e-9)
			assert.Equal(t, systemPrompt, req.System)
			assert.Contains(t, req.User, "\"\"\"\nThe answer is 42.\n\"\"\"")
			assert.Contains(t, req.User, "Question: What is the answer?")

			assert.Equal(t, "42", ans.Answer)
			assert.Equal(t, tt.wantModel, ans.Model, "falls back to the requested model")
			assert.False(t, ans.TextTruncated)
		})
	}
}

func TestAsk_Truncates(t *testing.T) {
	fake := &fakeCompleter{resp: Completion{Text: "ok", Model: "gpt-3.5-turbo-0125"}}
	s := NewService(types.QueryConfig{}, nil)
	s.InitializeWith(fake)

	long := strings.Repeat("é", MaxTextLength+10)
	ans, err := s.Ask(context.Background(), long, "q?", Options{})
	require.NoError(t, err)
	assert.True(t, ans.TextTruncated)
	assert.Equal(t, "gpt-3.5-turbo-0125", ans.Model)
	assert.Contains(t, fake.reqs[0].User, strings.Repeat("é", MaxTextLength)+TruncationMarker)
	assert.NotContains(t, fake.reqs[0].User, strings.Repeat("é", MaxTextLength+1))
}

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("a", MaxTextLength)
	got, cut := Truncate(exact)
	assert.False(t, cut)
	assert.Equal(t, exact, got)

	got, cut = Truncate(exact + "b")
	assert.True(t, cut)
	assert.Equal(t, exact+TruncationMarker, got)
}

func TestAsk_PropagatesCompleterErrors(t *testing.T) {
	fake := &fakeCompleter{err: errors.Join(errors.New("boom"), types.ErrRateLimited)}
	s := NewService(types.QueryConfig{}, nil)
	s.InitializeWith(fake)

	_, err := s.Ask(context.Background(), "text", "q?", Options{})
	assert.ErrorIs(t, err, types.ErrRateLimited)
}

func TestExtractAndAsk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	ext := &fakeExtractor{text: "revenue grew by ten percent"}
	fake := &fakeCompleter{resp: Completion{Text: "Ten percent.", Usage: Usage{PromptTokens: 20, CompletionTokens: 3, TotalTokens: 23}}}
	s := NewService(types.QueryConfig{}, textcache.New(ext, 0))
	s.InitializeWith(fake)

	res, err := s.ExtractAndAsk(context.Background(), path, "How much did revenue grow?", Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, DocumentInfo{FileName: "report.pdf", NumPages: 3, WordCount: 5, TextLength: 27}, res.PDFInfo)
	assert.Equal(t, "How much did revenue grow?", res.Question)
	assert.Equal(t, "Ten percent.", res.Answer.Answer)
	assert.Equal(t, int64(23), res.Usage.TotalTokens)

	_, err = s.ExtractAndAsk(context.Background(), path, "And costs?", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ext.calls, "second question is served from the cache")

	stats := s.CacheStats()
	assert.Equal(t, 1, stats.Size)
	require.Len(t, stats.Keys, 1)
	assert.True(t, strings.HasPrefix(stats.Keys[0], path+"-"))

	s.ClearCache()
	assert.Zero(t, s.CacheStats().Size)

	_, err = s.ExtractAndAsk(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), "q?", Options{})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestExtractAndAsk_BlankQuestionSkipsExtraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	ext := &fakeExtractor{text: "revenue grew"}
	fake := &fakeCompleter{}
	s := NewService(types.QueryConfig{}, textcache.New(ext, 0))
	s.InitializeWith(fake)

	for _, q := range []string{"", "  \n\t"} {
		_, err := s.ExtractAndAsk(context.Background(), path, q, Options{})
		assert.ErrorIs(t, err, types.ErrEmptyInput)
	}
	assert.Zero(t, ext.calls)
	assert.Zero(t, s.CacheStats().Size)
	assert.Empty(t, fake.reqs)
}
