package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/capture"
	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/loqalabs/loqa-transcribe/internal/stream"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

var liveOpts struct {
	capture string
	lm      bool
	noLM    bool
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Interactive live transcription",
	Long: `Transcribe audio from a capture command (live.capture_command or
--capture) or from stdin, printing de-duplicated lines as they are decoded.

When audio comes from a capture command and stdin is a terminal, type a key
and press Enter:
  p or space  pause / resume
  s           save the transcript now
  q           quit and save

The transcript is saved to live.save_folder/live_<date>_<time>.txt.

Example:
  loqa-transcribe live --capture "arecord -q -f S16_LE -r 16000 -c 1 -t raw"`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	f := liveCmd.Flags()
	f.StringVar(&liveOpts.capture, "capture", "", "command writing 16-bit mono PCM to stdout")
	f.BoolVar(&liveOpts.lm, "lm", false, "decode with the language model")
	f.BoolVar(&liveOpts.noLM, "no-lm", false, "decode greedily")
	liveCmd.MarkFlagsMutuallyExclusive("lm", "no-lm")
	rootCmd.AddCommand(liveCmd)
}

// consoleEmitter renders session events for a person at a terminal.
type consoleEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *consoleEmitter) Emit(ev protocol.StreamEvent) error {
	var line string
	switch ev.Type {
	case protocol.EventStatus:
		switch ev.Message {
		case protocol.StatusLoadingASR:
			line = fmt.Sprintf("Loading acoustic model: %v", ev.Extra["model"])
		case protocol.StatusLoadingLM:
			line = fmt.Sprintf("Loading language model: %v", ev.Extra["lm"])
		case protocol.StatusReady:
			line = "Listening..."
		case protocol.StatusPaused:
			line = "[PAUSED]"
		case protocol.StatusResumed:
			line = "[RECORDING]"
		case protocol.StatusStopped:
			line = "Stopped."
		}
	case protocol.EventError:
		line = "error: " + ev.Message
		if detail, ok := ev.Extra["detail"]; ok {
			line += fmt.Sprintf(" (%v)", detail)
		}
	}
	if line == "" {
		return nil
	}
	return c.printf("%s\n", line)
}

func (c *consoleEmitter) printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, args...)
	return err
}

func runLive(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	live := a.cfg.Live

	useLM := live.UseLM
	if liveOpts.lm {
		useLM = true
	}
	if liveOpts.noLM {
		useLM = false
	}
	captureCommand := liveOpts.capture
	if captureCommand == "" {
		captureCommand = live.CaptureCommand
	}
	source := "stdin"
	if captureCommand != "" {
		source = captureCommand
	}

	console := &consoleEmitter{w: cmd.ErrOrStderr()}
	stdout := cmd.OutOrStdout()
	journal := stream.NewJournal(live.SaveFolder, nil)
	save := func() {
		n, err := journal.Save()
		switch {
		case err != nil:
			a.logger.Error("save transcript failed", slog.String("error", err.Error()))
		case n == 0:
			console.printf("No transcript to save.\n")
		default:
			console.printf("Transcript saved to: %s (%d lines)\n", journal.Path(), n)
		}
	}

	sess, err := a.startSession(ctx, console, sessionSpec{
		mode:   "live",
		source: source,
		useLM:  useLM,
		onSegment: func(seg transcript.Segment) {
			if line := journal.Add(seg.Text); line != "" {
				fmt.Fprintln(stdout, line)
			}
		},
	})
	if err != nil {
		return err
	}

	input := cmd.InOrStdin()
	var controls <-chan capture.Control
	var captureProc *capture.Command
	captureCtx, stopCapture := context.WithCancel(ctx)
	defer stopCapture()
	if captureCommand != "" {
		captureProc, err = capture.StartCommand(captureCtx, captureCommand)
		if err != nil {
			sess.stop()
			return err
		}
		input = captureProc.Stdout()
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			controls = capture.ReadControls(os.Stdin)
			console.printf("%s\n", strings.Join([]string{
				"Controls (press Enter after the key):",
				"  p/space - Pause/Resume",
				"  s       - Save transcript",
				"  q       - Quit and save",
			}, "\n"))
		}
	}
	console.printf("Output file: %s\n", journal.Path())

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		sess.pump(captureCtx, input, live.SampleRate, console)
	}()

loop:
	for {
		select {
		case c, ok := <-controls:
			if !ok {
				controls = nil
				continue
			}
			switch c {
			case capture.ControlTogglePause:
				sess.TogglePause()
			case capture.ControlSave:
				save()
			case capture.ControlQuit:
				break loop
			}
		case <-pumpDone:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	segs := sess.stop()
	stopCapture()
	if captureProc != nil {
		if err := captureProc.Wait(captureCtx); err != nil {
			a.logger.Warn("capture ended with error", slog.String("error", err.Error()))
		}
	}
	save()
	a.logger.Info("live session finished", slog.String("session_id", sess.ID()), slog.Int("segments", len(segs)))
	return nil
}
