package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
	"github.com/loqalabs/loqa-transcribe/internal/tts"
)

var speakOpts struct {
	file  string
	voice string
	out   string
}

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Synthesize text or a transcript to a WAV file",
	Long: `Synthesize speech with the backend chosen by tts.mode (mock, exec).

Text comes from the arguments or, with --file, from a transcript (.txt or
.json).

Example:
  loqa-transcribe speak --out answer.wav "take the tablets twice a day"`,
	RunE: runSpeak,
}

func init() {
	f := speakCmd.Flags()
	f.StringVarP(&speakOpts.file, "file", "f", "", "read text from a transcript file")
	f.StringVar(&speakOpts.voice, "voice", "", "voice name (defaults to tts.voice)")
	f.StringVarP(&speakOpts.out, "out", "o", "speech.wav", "output WAV path")
	rootCmd.AddCommand(speakCmd)
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if speakOpts.file != "" {
		if text != "" {
			return fmt.Errorf("give text or --file, not both")
		}
		var err error
		if text, err = transcript.LoadText(speakOpts.file); err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to speak")
	}

	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	synth, err := tts.New(a.cfg.TTS)
	if err != nil {
		return withExitCode(2, err)
	}
	voice := speakOpts.voice
	if voice == "" {
		voice = a.cfg.TTS.Voice
	}
	seconds, err := tts.Speak(cmd.Context(), synth, tts.SynthRequest{Text: text, Voice: voice}, speakOpts.out)
	if err != nil {
		return err
	}
	a.logger.Info("speech written",
		slog.String("path", speakOpts.out),
		slog.Float64("seconds", seconds),
		slog.String("tts_mode", a.cfg.TTS.Mode))
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%.1fs)\n", speakOpts.out, seconds)
	return nil
}
