// Package llm answers questions over finished transcript text through a
// pluggable language model backend.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// Request describes a language model prompt.
type Request struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Chunk represents streamed model output.
type Chunk struct {
	Content          string
	Partial          bool
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Generator defines a pluggable LLM backend.
type Generator interface {
	Generate(ctx context.Context, req Request, consumer func(Chunk) error) error
}

// New selects the backend named by cfg.Mode.
func New(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Mode {
	case "", "mock":
		return NewMockGenerator(), nil
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model), nil
	case "exec":
		return NewExecGenerator(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown llm mode %q", cfg.Mode)
	}
}

// RequestFromConfig fills generation defaults from config.
func RequestFromConfig(cfg config.LLMConfig) Request {
	return Request{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
}
