package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

// Generate echoes the question line of the prompt so callers can assert on
// what reached the model.
func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	question := strings.TrimSpace(req.Prompt)
	if i := strings.LastIndex(question, questionPrefix); i >= 0 {
		question = strings.TrimSpace(question[i+len(questionPrefix):])
	}
	return consumer(Chunk{
		Content: "[mock answer to " + question + "]",
		Latency: 5 * time.Millisecond,
	})
}
