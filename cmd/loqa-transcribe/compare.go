package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

const maxReportedDifferences = 50

var compareOutput string

var compareCmd = &cobra.Command{
	Use:   "compare <candidate> <reference>",
	Short: "Compare two transcripts and report word error rate",
	Long: `Compare two transcripts (.txt or .json) word by word after lowercasing
and removing punctuation. The report lists word counts, word error rate in
both directions, edit operations against the reference and the first 50
differing passages.

Example:
  loqa-transcribe compare visit_transcript.txt whisper.txt -o comparison.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	candidate, err := transcript.LoadText(args[0])
	if err != nil {
		return err
	}
	reference, err := transcript.LoadText(args[1])
	if err != nil {
		return err
	}
	report := compareReport(args[0], args[1], candidate, reference)
	if compareOutput == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), report)
		return err
	}
	if err := os.WriteFile(compareOutput, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", compareOutput)
	return nil
}

func compareReport(candidatePath, referencePath, candidate, reference string) string {
	left := filepath.Base(candidatePath)
	right := filepath.Base(referencePath)
	against := transcript.CompareWords(reference, candidate)
	reverse := transcript.CompareWords(candidate, reference)
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	var b strings.Builder
	line := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }
	line("%s", rule)
	line("Transcript Comparison Report")
	line("%s", rule)
	line("")
	line("Files:")
	line("  Candidate: %s", candidatePath)
	line("  Reference: %s", referencePath)
	line("")
	line("Word Counts:")
	line("  %s: %d words", left, against.HypothesisWords)
	line("  %s: %d words", right, against.ReferenceWords)
	line("")
	line("Word Error Rate:")
	line("  %s vs %s (reference): %.1f%%", left, right, 100*against.WER())
	line("  %s vs %s (reference): %.1f%%", right, left, 100*reverse.WER())
	line("")
	line("Edit Operations (%s as reference):", right)
	line("  Substitutions: %d", against.Substitutions)
	line("  Insertions:    %d", against.Insertions)
	line("  Deletions:     %d", against.Deletions)
	line("")
	line("%s", thin)
	line("Differences (first %d):", maxReportedDifferences)
	line("%s", thin)
	line("")
	diffs := transcript.Differences(candidate, reference)
	for i, d := range diffs {
		if i == maxReportedDifferences {
			line("... and %d more differences", len(diffs)-maxReportedDifferences)
			line("")
			break
		}
		line("  %s: %s", left, orNone(d.Left))
		line("  %s: %s", right, orNone(d.Right))
		line("")
	}
	line("%s", rule)
	line("Summary")
	line("%s", rule)
	wer := against.WER()
	line("Overall similarity: %.1f%%", 100*(1-wer))
	line("Assessment: %s", assessment(wer))
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func assessment(wer float64) string {
	switch {
	case wer < 0.1:
		return "Very similar outputs"
	case wer < 0.2:
		return "Moderately similar"
	case wer < 0.3:
		return "Notable differences"
	default:
		return "Significant differences"
	}
}
