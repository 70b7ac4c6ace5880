// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/internal/pdftext"
	"github.com/pdiddy/textbridge/internal/query"
	"github.com/pdiddy/textbridge/internal/textcache"
	"github.com/pdiddy/textbridge/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <file.pdf> <question...>",
	Short: "Answer a question about a PDF with an OpenAI chat model",
	Long: `Ask extracts the text of a PDF and sends it, with the question, to a chat
model in a single request. Text beyond 8000 characters is truncated and the
answer says so. Several questions can be given with repeated --question
flags; the document is extracted once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	path := args[0]
	questions, _ := cmd.Flags().GetStringArray("question")
	if len(args) > 1 {
		questions = append([]string{strings.Join(args[1:], " ")}, questions...)
	}

	if len(questions) == 0 {
		return fmt.Errorf("a question is required: %w", types.ErrEmptyInput)
	}

	svc := query.NewService(cfg.Query, textcache.New(pdftext.New(), cfg.Query.CacheCapacity))
	key, err := apiKey()
	if err != nil {
		return err
	}
	if err := svc.Initialize(key); err != nil {
		return fmt.Errorf("set .secrets/openai-api-key or OPENAI_API_KEY: %w", err)
	}
	opts := query.Options{}
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	opts.Temperature, _ = cmd.Flags().GetFloat64("temperature")

	var answers []query.DocumentAnswer
	for _, q := range questions {
		res, err := svc.ExtractAndAsk(cmd.Context(), path, q, opts)
		entry := history.Entry{Operation: history.OpAsk, Domain: "pdf", Input: path, Output: q, Total: 1}
		if err != nil {
			entry.Failed = 1
			record(cmd.Context(), entry)
			return err
		}
		entry.Successful = 1
		record(cmd.Context(), entry)
		answers = append(answers, res)

		if !jsonOutput(cmd) {
			printAnswer(res)
		}
	}

	if jsonOutput(cmd) {
		if len(answers) == 1 {
			return printJSON(answers[0])
		}
		return printJSON(struct {
			Success bool                   `json:"success"`
			Answers []query.DocumentAnswer `json:"answers"`
			Cache   textcache.Stats        `json:"cache"`
		}{true, answers, svc.CacheStats()})
	}
	return nil
}

func printAnswer(res query.DocumentAnswer) {
	fmt.Fprintf(os.Stdout, "Q: %s\n\n%s\n\n", res.Question, res.Answer.Answer)
	fmt.Fprintf(os.Stdout, "(%s, %d pages, %d words; model %s, %d tokens",
		res.PDFInfo.FileName, res.PDFInfo.NumPages, res.PDFInfo.WordCount, res.Model, res.Usage.TotalTokens)
	if res.TextTruncated {
		fmt.Fprint(os.Stdout, "; document text truncated")
	}
	fmt.Fprintln(os.Stdout, ")")
}

func init() {
	askCmd.Flags().StringArray("question", nil, "additional question (repeatable)")
	askCmd.Flags().String("model", "", "chat model (default from config)")
	askCmd.Flags().Int("max-tokens", 0, "answer length limit (default from config)")
	askCmd.Flags().Float64("temperature", 0, "sampling temperature (default from config)")

	rootCmd.AddCommand(askCmd)
}
