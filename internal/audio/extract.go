package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/mattn/go-shellwords"
)

// Extractor converts arbitrary media into 16 kHz mono WAV with an external
// tool (ffmpeg by default).
type Extractor struct {
	cmd    []string
	tmpDir string
}

// NewExtractor parses the extraction command line. An empty command means
// plain "ffmpeg" from PATH.
func NewExtractor(command, tmpDir string) (*Extractor, error) {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, asrerr.Configuration("parse ffmpeg command", err)
	}
	if len(args) == 0 {
		return nil, asrerr.Configf("parse ffmpeg command", "ffmpeg command is empty")
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Extractor{cmd: args, tmpDir: tmpDir}, nil
}

// Extract writes a temporary WAV for input and returns its path. The caller
// must remove the file.
func (e *Extractor) Extract(ctx context.Context, input string) (string, error) {
	tmp, err := os.CreateTemp(e.tmpDir, "loqa_extract_*.wav")
	if err != nil {
		return "", asrerr.IO("create temp wav", err)
	}
	out := tmp.Name()
	tmp.Close()

	args := append([]string{}, e.cmd[1:]...)
	args = append(args,
		"-i", input,
		"-ar", strconv.Itoa(SampleRate),
		"-ac", "1",
		"-f", "wav",
		"-y", out,
	)
	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return "", asrerr.Extraction(input, fmt.Errorf("%s: %w: %s", e.cmd[0], err, strings.TrimSpace(stderr.String())))
	}
	return out, nil
}

// Load extracts input and decodes it into a canonical buffer. The temporary
// WAV is always removed.
func (e *Extractor) Load(ctx context.Context, input string) (Buffer, error) {
	if _, err := os.Stat(input); err != nil {
		return Buffer{}, asrerr.Extraction(input, err)
	}
	wavPath, err := e.Extract(ctx, input)
	if err != nil {
		return Buffer{}, err
	}
	defer os.Remove(wavPath)

	buf, err := ReadWAV(wavPath, 0)
	if err != nil {
		return Buffer{}, asrerr.Extraction(input, err)
	}
	if buf.SampleRate != SampleRate {
		return Buffer{}, asrerr.Configf(input, "expected %d Hz audio, got %d", SampleRate, buf.SampleRate)
	}
	return buf, nil
}

// WAVLoader reads WAV files directly, resampling to the canonical rate. It
// is used when no extraction tool is configured.
type WAVLoader struct{}

func (WAVLoader) Load(_ context.Context, input string) (Buffer, error) {
	buf, err := ReadWAV(input, SampleRate)
	if err != nil {
		return Buffer{}, asrerr.Extraction(input, err)
	}
	return buf, nil
}
