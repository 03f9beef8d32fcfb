package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/llm"
)

var askContextWords int

var askCmd = &cobra.Command{
	Use:   "ask <transcript> [question...]",
	Short: "Ask a language model about a transcript",
	Long: `Answer a question using a transcript (.txt or .json) as context.

Without a question, read questions from stdin one per line until EOF or
"quit". The backend is chosen by llm.mode (mock, ollama, exec).

Example:
  loqa-transcribe ask transcripts/live_2025-03-04_09-08-07.txt "what was the diagnosis?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askContextWords, "context-words", llm.DefaultContextWords, "keep only the last N transcript words")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	text, err := llm.LoadContext(args[0], askContextWords)
	if err != nil {
		return err
	}
	gen, err := llm.New(a.cfg.LLM)
	if err != nil {
		return withExitCode(2, err)
	}
	base := llm.RequestFromConfig(a.cfg.LLM)
	out := cmd.OutOrStdout()
	a.logger.Info("transcript loaded",
		slog.String("path", args[0]),
		slog.Int("words", len(strings.Fields(text))),
		slog.String("llm_mode", a.cfg.LLM.Mode))

	ask := func(q string) error {
		if _, err := llm.Ask(ctx, gen, base, text, q, out); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out)
		return err
	}

	if len(args) > 1 {
		return ask(strings.Join(args[1:], " "))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprintln(cmd.ErrOrStderr(), "Ask questions (quit to exit):")
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}
		if err := ask(q); err != nil {
			a.logger.Error("ask failed", slog.String("error", err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}
