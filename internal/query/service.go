// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query answers natural-language questions about PDF text with a
// chat completion model. A Service is built once, initialized with an API
// key, and shares a text cache so repeated questions about the same file
// skip extraction.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/internal/textcache"
	"github.com/pdiddy/textbridge/pkg/types"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7

	// MaxTextLength is the number of characters of document text sent with
	// a question. Longer text is cut and TruncationMarker appended.
	MaxTextLength    = 8000
	TruncationMarker = "...\n[Text truncated due to length]"
)

const systemPrompt = "You are a helpful assistant that answers questions based on the provided PDF document content. " +
	"Your answers should be accurate, concise, and based only on the information available in the document. " +
	"If the answer is not found in the document, clearly state that the information is not available in the provided text."

const userPrompt = "Based on the following PDF document content, please answer this question:\n\n" +
	"PDF Content:\n\"\"\"\n%s\n\"\"\"\n\n" +
	"Question: %s\n\n" +
	"Please provide a detailed answer based on the document content above."

// Options overrides the model settings for one question. Zero values fall
// back to the service configuration, then to the package defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Answer is the model's reply to one question.
type Answer struct {
	Answer        string `json:"answer" yaml:"answer"`
	Model         string `json:"model" yaml:"model"`
	Usage         Usage  `json:"usage" yaml:"usage"`
	TextTruncated bool   `json:"textTruncated" yaml:"text_truncated"`
}

// DocumentInfo describes the PDF a question was asked about.
type DocumentInfo struct {
	FileName   string `json:"fileName" yaml:"file_name"`
	NumPages   int    `json:"numPages" yaml:"num_pages"`
	WordCount  int    `json:"wordCount" yaml:"word_count"`
	TextLength int    `json:"textLength" yaml:"text_length"`
}

// DocumentAnswer is the result of ExtractAndAsk.
type DocumentAnswer struct {
	Success  bool         `json:"success" yaml:"success"`
	PDFInfo  DocumentInfo `json:"pdfInfo" yaml:"pdf_info"`
	Question string       `json:"question" yaml:"question"`
	Answer   `yaml:",inline"`
}

// Service asks questions about document text.
type Service struct {
	cfg   types.QueryConfig
	cache *textcache.Cache

	mu        sync.RWMutex
	completer Completer
}

// NewService returns an uninitialized service. Ask fails with
// types.ErrNotInitialized until Initialize or InitializeWith succeeds.
func NewService(cfg types.QueryConfig, cache *textcache.Cache) *Service {
	return &Service{cfg: cfg, cache: cache}
}

// Initialize configures an OpenAI completer for apiKey.
func (s *Service) Initialize(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return types.ErrMissingCredential
	}
	s.InitializeWith(NewOpenAI(apiKey, s.cfg.BaseURL))
	return nil
}

// InitializeWith installs c as the completer.
func (s *Service) InitializeWith(c Completer) {
	s.mu.Lock()
	s.completer = c
	s.mu.Unlock()
}

// Initialized reports whether a completer is installed.
func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completer != nil
}

// Ask sends text and question to the model in a single request.
func (s *Service) Ask(ctx context.Context, text, question string, opts Options) (Answer, error) {
	s.mu.RLock()
	c := s.completer
	s.mu.RUnlock()
	if c == nil {
		return Answer{}, types.ErrNotInitialized
	}
	if strings.TrimSpace(text) == "" {
		return Answer{}, fmt.Errorf("document text is empty: %w", types.ErrEmptyInput)
	}
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("question is empty: %w", types.ErrEmptyInput)
	}

	text, truncated := Truncate(text)
	req := CompletionRequest{
		Model:       s.resolveModel(opts.Model),
		System:      systemPrompt,
		User:        fmt.Sprintf(userPrompt, text, question),
		MaxTokens:   firstPositive(opts.MaxTokens, s.cfg.MaxTokens, DefaultMaxTokens),
		Temperature: firstPositiveFloat(opts.Temperature, s.cfg.Temperature, DefaultTemperature),
	}
	slog.Debug("sending question", "model", req.Model, "max_tokens", req.MaxTokens, "truncated", truncated)

	comp, err := c.Complete(ctx, req)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(statusLabel(err)).Inc()
		return Answer{}, err
	}
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	metrics.QueryTokensTotal.WithLabelValues("prompt").Add(float64(comp.Usage.PromptTokens))
	metrics.QueryTokensTotal.WithLabelValues("completion").Add(float64(comp.Usage.CompletionTokens))

	model := comp.Model
	if model == "" {
		model = req.Model
	}
	return Answer{Answer: comp.Text, Model: model, Usage: comp.Usage, TextTruncated: truncated}, nil
}

// ExtractAndAsk extracts the text of the PDF at path, through the cache,
// and asks question about it.
func (s *Service) ExtractAndAsk(ctx context.Context, path, question string, opts Options) (DocumentAnswer, error) {
	if !s.Initialized() {
		return DocumentAnswer{}, types.ErrNotInitialized
	}
	if strings.TrimSpace(question) == "" {
		return DocumentAnswer{}, fmt.Errorf("question is blank: %w", types.ErrEmptyInput)
	}
	if s.cache == nil {
		return DocumentAnswer{}, fmt.Errorf("no text cache configured: %w", types.ErrNotInitialized)
	}
	entry, err := s.cache.GetOrExtract(ctx, path)
	if err != nil {
		return DocumentAnswer{}, err
	}

	ans, err := s.Ask(ctx, entry.Text, question, opts)
	if err != nil {
		return DocumentAnswer{}, err
	}
	return DocumentAnswer{
		Success: true,
		PDFInfo: DocumentInfo{
			FileName:   filepath.Base(path),
			NumPages:   entry.PageCount,
			WordCount:  entry.WordCount,
			TextLength: utf8.RuneCountInString(entry.Text),
		},
		Question: question,
		Answer:   ans,
	}, nil
}

// CacheStats reports the text cache contents.
func (s *Service) CacheStats() textcache.Stats {
	if s.cache == nil {
		return textcache.Stats{Keys: []string{}}
	}
	return s.cache.Stats()
}

// ClearCache drops every cached extraction.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Truncate cuts text to MaxTextLength characters and appends
// TruncationMarker. It reports whether text was cut.
func Truncate(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MaxTextLength {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:MaxTextLength]) + TruncationMarker, true
}

func (s *Service) resolveModel(m string) string {
	switch {
	case m != "":
		return m
	case s.cfg.Model != "":
		return s.cfg.Model
	}
	return DefaultModel
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, types.ErrAuthentication):
		return "auth"
	case errors.Is(err, types.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, types.ErrUpstream):
		return "upstream"
	}
	return "error"
}
