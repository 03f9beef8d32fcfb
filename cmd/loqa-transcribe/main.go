// Command loqa-transcribe transcribes media files and live audio.
//
// Usage:
//
//	loqa-transcribe [flags] <command> [args]
//
// Commands:
//
//	transcribe  - Batch-transcribe media files to txt/json/vtt/srt
//	stream      - Read 16-bit PCM on stdin and write JSONL events to stdout
//	live        - Interactive live transcription with pause/save/quit controls
//	json2txt    - Convert a segments JSON file to timestamped text
//	ask         - Ask a question about a transcript
//	speak       - Synthesize transcript text to a WAV file
//	compare     - Word error rate and differences between two transcripts
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

var (
	configPath string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "loqa-transcribe",
	Short:         "Local speech transcription: batch files, live streams and transcript tools",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (default "+defaultConfigHint+")")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format: json or text")
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(code)
}
