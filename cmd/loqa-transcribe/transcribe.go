package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/audio"
	"github.com/loqalabs/loqa-transcribe/internal/chunk"
	"github.com/loqalabs/loqa-transcribe/internal/decode"
	"github.com/loqalabs/loqa-transcribe/internal/pipeline"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

var transcribeOpts struct {
	output  string
	txt     bool
	json    bool
	vtt     bool
	srt     bool
	all     bool
	noLM    bool
	noVAD   bool
	wavOnly bool
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>...",
	Short: "Transcribe media files",
	Long: `Transcribe one or more media files.

Each input is converted to 16 kHz mono with ffmpeg (or read directly as WAV
with --wav), split on speech with VAD, decoded in overlapping chunks and
written as <stem>_transcript.<ext> next to the input or under -o.

A failing file does not stop the run; the exit code is 1 when any file
failed and 2 when the model or configuration could not be loaded.

Examples:
  loqa-transcribe transcribe visit.m4a
  loqa-transcribe transcribe --json --srt -o out/ a.wav b.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranscribe,
}

func init() {
	f := transcribeCmd.Flags()
	f.StringVarP(&transcribeOpts.output, "output", "o", "", "output directory or base path")
	f.BoolVar(&transcribeOpts.txt, "txt", false, "write timestamped text")
	f.BoolVar(&transcribeOpts.json, "json", false, "write JSON segments")
	f.BoolVar(&transcribeOpts.vtt, "vtt", false, "write WebVTT subtitles")
	f.BoolVar(&transcribeOpts.srt, "srt", false, "write SRT subtitles")
	f.BoolVar(&transcribeOpts.all, "all", false, "write every format")
	f.BoolVar(&transcribeOpts.noLM, "no-lm", false, "decode greedily without the language model")
	f.BoolVar(&transcribeOpts.noVAD, "no-vad", false, "decode the whole file instead of speech intervals")
	f.BoolVar(&transcribeOpts.wavOnly, "wav", false, "read inputs as WAV without ffmpeg")
	rootCmd.AddCommand(transcribeCmd)
}

// requestedFormats prefers flags over configured formats.
func requestedFormats(configured []string) ([]transcript.Format, error) {
	o := transcribeOpts
	if o.all {
		return transcript.Formats, nil
	}
	var out []transcript.Format
	for _, sel := range []struct {
		on bool
		f  transcript.Format
	}{
		{o.txt, transcript.FormatTXT},
		{o.json, transcript.FormatJSON},
		{o.vtt, transcript.FormatVTT},
		{o.srt, transcript.FormatSRT},
	} {
		if sel.on {
			out = append(out, sel.f)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	for _, name := range configured {
		f, err := transcript.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		out = []transcript.Format{transcript.FormatTXT}
	}
	return out, nil
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	tc := a.cfg.Transcription

	formats, err := requestedFormats(tc.Formats)
	if err != nil {
		return withExitCode(2, err)
	}
	chunkCfg, err := chunk.Stride(audio.SampleRate, tc.ChunkLengthS, tc.StrideLengthS)
	if err != nil {
		return withExitCode(2, err)
	}
	chunkCfg.MinSamples = int(tc.MinChunkS * float64(audio.SampleRate))

	var loader pipeline.Loader = audio.WAVLoader{}
	if !transcribeOpts.wavOnly {
		ext, err := audio.NewExtractor(tc.FFmpegCommand, "")
		if err != nil {
			return withExitCode(2, err)
		}
		loader = ext
	}

	useLM := tc.UseLM && !transcribeOpts.noLM
	a.logger.Info("loading models", slog.String("mode", a.cfg.Models.Mode), slog.Bool("use_lm", useLM))
	dec, err := decode.Build(ctx, a.cfg.Models, useLM)
	if err != nil {
		return withExitCode(2, err)
	}

	if err := a.openStore(ctx); err != nil {
		return withExitCode(2, err)
	}
	a.connectBus(ctx)
	var pub pipeline.Publisher
	if a.bus != nil {
		pub = a.bus
	}

	output := transcribeOpts.output
	if output == "" {
		output = tc.OutputDir
	}
	batch, err := pipeline.New(pipeline.Config{
		Chunk:   chunkCfg,
		VAD:     vadConfig(a.cfg.VAD),
		UseVAD:  tc.UseVAD && !transcribeOpts.noVAD,
		Formats: formats,
		Output:  output,
	}, loader, dec, pipeline.Options{
		Logger:    a.logger,
		Metrics:   a.tel.Metrics,
		Store:     a.store,
		Publisher: pub,
	})
	if err != nil {
		return withExitCode(2, err)
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, res := range batch.Run(ctx, args) {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "FAILED %s: %v\n", res.Input, res.Err)
			continue
		}
		fmt.Fprintf(out, "%s -> %s (%d segments, %.1fs)\n",
			res.Input, strings.Join(res.Paths, ", "), len(res.Segments), res.Duration.Seconds())
	}
	if failed > 0 {
		return withExitCode(1, fmt.Errorf("%d of %d files failed", failed, len(args)))
	}
	return nil
}
