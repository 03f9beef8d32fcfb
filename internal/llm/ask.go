package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

// DefaultContextWords bounds how much transcript is sent with a question.
const DefaultContextWords = 2000

const (
	systemPrompt = "You are a helpful medical education assistant. " +
		"Answer questions based only on the provided context. " +
		"If the context doesn't contain the answer, say so clearly."
	questionPrefix = "Question:"
)

// LoadContext reads a transcript as plain text and keeps only the last
// maxWords words when maxWords > 0.
func LoadContext(path string, maxWords int) (string, error) {
	text, err := transcript.LoadText(path)
	if err != nil {
		return "", err
	}
	if maxWords > 0 {
		if words := strings.Fields(text); len(words) > maxWords {
			text = strings.Join(words[len(words)-maxWords:], " ")
		}
	}
	return text, nil
}

// BuildPrompt frames a question against transcript context.
func BuildPrompt(transcriptText, question string) string {
	return fmt.Sprintf("Context:\n\n%s\n\n---\n\n%s %s", transcriptText, questionPrefix, question)
}

// Ask sends question with transcript context to gen. Streamed output is
// copied to w as it arrives when w is non-nil; the full answer is returned.
func Ask(ctx context.Context, gen Generator, base Request, transcriptText, question string, w io.Writer) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	req := base
	req.System = systemPrompt
	req.Prompt = BuildPrompt(transcriptText, question)

	var answer strings.Builder
	err := gen.Generate(ctx, req, func(c Chunk) error {
		answer.WriteString(c.Content)
		if w != nil {
			if _, err := io.WriteString(w, c.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer.String()), nil
}
