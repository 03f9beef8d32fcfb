package main

import (
	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

var json2txtOutput string

var json2txtCmd = &cobra.Command{
	Use:   "json2txt <transcript.json>",
	Short: "Render a JSON transcript as timestamped text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		segs, err := transcript.ReadJSONFile(args[0])
		if err != nil {
			return err
		}
		if json2txtOutput == "" {
			return transcript.Write(cmd.OutOrStdout(), transcript.FormatTXT, segs)
		}
		return transcript.WriteFile(json2txtOutput, transcript.FormatTXT, segs)
	},
}

func init() {
	json2txtCmd.Flags().StringVarP(&json2txtOutput, "output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(json2txtCmd)
}
