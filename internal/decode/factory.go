package decode

import (
	"context"
	"fmt"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// LoadModel builds the acoustic model and its label vocabulary for the
// configured backend. Labels are truncated to the model's vocabulary.
func LoadModel(ctx context.Context, cfg config.ModelsConfig) (AcousticModel, Labels, error) {
	switch cfg.Mode {
	case "mock":
		labels := DefaultMockLabels()
		model, err := NewMockModel(labels, DefaultMockWords)
		if err != nil {
			return nil, nil, asrerr.Configuration("mock model", err)
		}
		return model, labels, nil
	case "", "exec":
		labels, err := LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, nil, err
		}
		model, err := NewExecModel(ctx, cfg.AcousticCommand, cfg.AcousticModel)
		if err != nil {
			return nil, nil, err
		}
		return model, labels.Truncate(model.VocabSize()), nil
	default:
		return nil, nil, asrerr.Configf("models", "unknown mode %q", cfg.Mode)
	}
}

// LoadLM builds the language model decoder for the configured backend.
func LoadLM(cfg config.ModelsConfig, labels Labels) (LMDecoder, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockLM(labels), nil
	case "", "exec":
		lm, err := NewExecLM(cfg.LMCommand, cfg.LMPath, labels)
		if err != nil {
			return nil, err
		}
		return lm, nil
	default:
		return nil, asrerr.Configf("models", "unknown mode %q", cfg.Mode)
	}
}

// Build loads everything a Decoder needs in one call.
func Build(ctx context.Context, cfg config.ModelsConfig, useLM bool) (*Decoder, error) {
	model, labels, err := LoadModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load acoustic model: %w", err)
	}
	var lm LMDecoder
	if useLM {
		if lm, err = LoadLM(cfg, labels); err != nil {
			return nil, fmt.Errorf("load language model: %w", err)
		}
	}
	return New(model, labels, Config{UseLanguageModel: useLM}, lm)
}
