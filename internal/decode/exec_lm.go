package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// ExecLM runs an external n-gram beam search decoder. It receives
// {"labels": [...], "probs": [[...]]} on stdin and prints {"text": "..."}.
type ExecLM struct {
	cmd    []string
	lmPath string
	labels Labels
}

type lmRequest struct {
	Labels Labels      `json:"labels"`
	Probs  [][]float32 `json:"probs"`
}

type lmResult struct {
	Text string `json:"text"`
}

// NewExecLM builds the decoder for the given model labels. The labels are
// rewritten for word-level decoding before being sent.
func NewExecLM(command, lmPath string, labels Labels) (*ExecLM, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, asrerr.Configuration("lm command", err)
	}
	if lmPath != "" {
		if _, err := os.Stat(lmPath); err != nil {
			return nil, asrerr.Configuration("lm model", err)
		}
	}
	if len(labels) == 0 {
		return nil, asrerr.Configf("lm labels", "label list is empty")
	}
	return &ExecLM{cmd: args, lmPath: lmPath, labels: labels.ForLM()}, nil
}

func (l *ExecLM) LabelCount() int { return len(l.labels) }

func (l *ExecLM) Decode(ctx context.Context, out Output) (string, error) {
	if out.Steps > 0 && out.Width != len(l.labels) {
		return "", fmt.Errorf("output width %d does not match %d lm labels", out.Width, len(l.labels))
	}
	payload, err := json.Marshal(lmRequest{Labels: l.labels, Probs: out.Rows()})
	if err != nil {
		return "", fmt.Errorf("encode lm request: %w", err)
	}

	cmdArgs := append([]string{}, l.cmd[1:]...)
	if l.lmPath != "" {
		cmdArgs = append(cmdArgs, "--lm", l.lmPath)
	}
	command := exec.CommandContext(ctx, l.cmd[0], cmdArgs...)
	var stdout, stderr bytes.Buffer
	command.Stdin = bytes.NewReader(payload)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return "", fmt.Errorf("lm command failed: %w: %s", err, stderr.String())
	}
	var resp lmResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode lm response: %w", err)
	}
	return resp.Text, nil
}
