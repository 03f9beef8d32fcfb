// Package capture produces live audio for the stream pipeline.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/loqa-transcribe/internal/audio"
)

// ReadPCM reads little-endian 16-bit mono PCM from r in reads of one second
// of audio and hands each frame to push. An odd trailing byte in a read is
// dropped. It returns nil at end of input.
func ReadPCM(ctx context.Context, r io.Reader, sampleRate int, push func([]float32) error) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	buf := make([]byte, sampleRate*2)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if samples := audio.PCM16ToFloat32(buf[:n]); len(samples) > 0 {
				if perr := push(samples); perr != nil {
					return perr
				}
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return fmt.Errorf("read pcm: %w", err)
		}
	}
}

// Command is a running capture process writing PCM to stdout, for example
// `arecord -q -f S16_LE -r 16000 -c 1 -t raw`.
type Command struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr strings.Builder
}

func StartCommand(ctx context.Context, command string) (*Command, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	c := &Command{cmd: exec.CommandContext(ctx, args[0], args[1:]...)}
	c.cmd.Stderr = &c.stderr
	c.stdout, err = c.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return c, nil
}

func (c *Command) Stdout() io.Reader { return c.stdout }

// Wait reaps the process. A process killed by context cancellation is not
// an error.
func (c *Command) Wait(ctx context.Context) error {
	err := c.cmd.Wait()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("capture command failed: %w: %s", err, c.stderr.String())
	}
	return nil
}

type Control int

const (
	ControlTogglePause Control = iota + 1
	ControlSave
	ControlQuit
)

// ReadControls turns terminal input into controls: p or space toggles
// pause, s saves and q quits. Input is line buffered, so a key is applied
// after Enter. The channel closes at end of input.
func ReadControls(r io.Reader) <-chan Control {
	out := make(chan Control)
	go func() {
		defer close(out)
		reader := bufio.NewReader(r)
		for {
			b, err := reader.ReadByte()
			if err != nil {
				return
			}
			switch b {
			case 'p', 'P', ' ':
				out <- ControlTogglePause
			case 's', 'S':
				out <- ControlSave
			case 'q', 'Q':
				out <- ControlQuit
				return
			}
		}
	}()
	return out
}
