package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/loqalabs/loqa-transcribe/internal/stream"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

var streamOpts struct {
	lm   bool
	noLM bool
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Transcribe 16-bit PCM from stdin as JSONL events",
	Long: `Read mono 16-bit little-endian PCM at live.sample_rate from stdin and
write one JSON event per line to stdout.

Events:
  {"type":"status","ts":...,"message":"loading_asr|loading_lm|ready|idle|stopped", ...}
  {"type":"asr","ts":...,"text":"...","chunk_s":5.0,"rtf":0.12}
  {"type":"error","ts":...,"message":"model_load_failed|lm_load_failed|transcribe_failed", ...}

Logs go to stderr. The exit code is 2 when the model cannot be loaded.

Example:
  ffmpeg -i visit.m4a -f s16le -ac 1 -ar 16000 - | loqa-transcribe stream`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().BoolVar(&streamOpts.lm, "lm", false, "decode with the language model")
	streamCmd.Flags().BoolVar(&streamOpts.noLM, "no-lm", false, "decode greedily")
	streamCmd.MarkFlagsMutuallyExclusive("lm", "no-lm")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	useLM := a.cfg.Live.UseLM
	if streamOpts.lm {
		useLM = true
	}
	if streamOpts.noLM {
		useLM = false
	}

	out := stream.NewJSONLEmitter(cmd.OutOrStdout())
	sess, err := a.startSession(ctx, out, sessionSpec{mode: "stream", source: "stdin", useLM: useLM})
	if err != nil {
		return err
	}
	sess.pump(ctx, cmd.InOrStdin(), a.cfg.Live.SampleRate, out)
	segs := sess.stop()

	if a.bus != nil && len(segs) > 0 {
		msg := protocol.TranscriptMessage{RunID: sess.ID(), Source: "stdin", Mode: "stream", Segments: segs, CreatedAt: time.Now().UTC()}
		if err := a.bus.PublishTranscript(msg); err != nil {
			a.logger.Warn("publish transcript failed", slog.String("error", err.Error()))
		}
	}
	a.logger.Info("stream finished",
		slog.String("session_id", sess.ID()),
		slog.Int("segments", len(segs)),
		slog.String("text_preview", preview(transcript.Text(segs), 80)))
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
