package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/audio"
)

// ExecModel runs an external acoustic model command. The command is invoked
// as `<cmd> --audio <chunk.wav> [--model <path>]` and prints
// {"probs": [[...], ...]} on stdout. At construction it is invoked with
// --describe and prints {"vocab_size": N}.
type ExecModel struct {
	cmd       []string
	modelPath string
	tmpDir    string
	vocabSize int
	mu        sync.Mutex
}

type describeResult struct {
	VocabSize int `json:"vocab_size"`
}

type inferResult struct {
	Probs [][]float32 `json:"probs"`
}

func NewExecModel(ctx context.Context, command, modelPath string) (*ExecModel, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, asrerr.Configuration("acoustic command", err)
	}
	m := &ExecModel{cmd: args, modelPath: modelPath, tmpDir: os.TempDir()}

	stdout, err := m.run(ctx, "--describe")
	if err != nil {
		return nil, asrerr.Configuration("describe acoustic model", err)
	}
	var desc describeResult
	if err := json.Unmarshal(stdout, &desc); err != nil {
		return nil, asrerr.Configuration("describe acoustic model", fmt.Errorf("decode response: %w", err))
	}
	if desc.VocabSize <= 0 {
		return nil, asrerr.Configf("describe acoustic model", "vocab_size must be positive, got %d", desc.VocabSize)
	}
	m.vocabSize = desc.VocabSize
	return m, nil
}

func (m *ExecModel) VocabSize() int { return m.vocabSize }

func (m *ExecModel) Infer(ctx context.Context, samples []float32, sampleRate int) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.CreateTemp(m.tmpDir, "loqa_chunk_*.wav")
	if err != nil {
		return Output{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWAV(file, samples, sampleRate); err != nil {
		return Output{}, err
	}

	stdout, err := m.run(ctx, "--audio", file.Name())
	if err != nil {
		return Output{}, err
	}
	var resp inferResult
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return Output{}, fmt.Errorf("decode acoustic response: %w", err)
	}
	return NewOutput(resp.Probs)
}

func (m *ExecModel) run(ctx context.Context, extra ...string) ([]byte, error) {
	cmdArgs := append([]string{}, m.cmd[1:]...)
	cmdArgs = append(cmdArgs, extra...)
	if m.modelPath != "" {
		cmdArgs = append(cmdArgs, "--model", m.modelPath)
	}
	command := exec.CommandContext(ctx, m.cmd[0], cmdArgs...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("acoustic command failed: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func parseCommand(command string) ([]string, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	return args, nil
}
