package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

type Format string

const (
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
)

// Formats lists every supported format in write order.
var Formats = []Format{FormatJSON, FormatTXT, FormatVTT, FormatSRT}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTXT, FormatJSON, FormatVTT, FormatSRT:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Extension returns the file suffix including the dot.
func (f Format) Extension() string { return "." + string(f) }

type document struct {
	Segments []Segment `json:"segments"`
}

// Write serializes segments in the given format. Segments with empty text
// are skipped by every format.
func Write(w io.Writer, f Format, segments []Segment) error {
	bw := bufio.NewWriter(w)
	var err error
	switch f {
	case FormatTXT:
		err = writeTXT(bw, segments)
	case FormatJSON:
		err = writeJSON(bw, segments)
	case FormatVTT:
		err = writeVTT(bw, segments)
	case FormatSRT:
		err = writeSRT(bw, segments)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func nonEmpty(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return out
}

func writeTXT(w io.Writer, segments []Segment) error {
	for _, s := range nonEmpty(segments) {
		if _, err := fmt.Fprintf(w, "[%s] %s\n", HMS(s.Start), s.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, segments []Segment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(document{Segments: nonEmpty(segments)})
}

func writeVTT(w io.Writer, segments []Segment) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range nonEmpty(segments) {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", VTTTimestamp(s.Start), VTTTimestamp(s.End), s.Text)
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), " \n")+"\n")
	return err
}

func writeSRT(w io.Writer, segments []Segment) error {
	var b strings.Builder
	for i, s := range nonEmpty(segments) {
		b.WriteString(strconv.Itoa(i + 1))
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n\n", SRTTimestamp(s.Start), SRTTimestamp(s.End), s.Text)
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), " \n")+"\n")
	return err
}

// WriteFile writes one format to path. Failures are IO errors.
func WriteFile(path string, f Format, segments []Segment) error {
	file, err := os.Create(path)
	if err != nil {
		return asrerr.IO("create "+path, err)
	}
	if err := Write(file, f, segments); err != nil {
		file.Close()
		return asrerr.IO("write "+path, err)
	}
	if err := file.Close(); err != nil {
		return asrerr.IO("close "+path, err)
	}
	return nil
}

// WriteAll writes every requested format next to base and returns the
// written paths.
func WriteAll(base string, formats []Format, segments []Segment) ([]string, error) {
	if dir := filepath.Dir(base); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, asrerr.IO("create output dir", err)
		}
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + f.Extension()
		if err := WriteFile(path, f, segments); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// OutputBase derives the extension-less output path for input. An empty
// output puts files next to the input; a directory receives
// <stem>_transcript; anything else is a base path with its suffix removed.
func OutputBase(input, output string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if output == "" {
		return filepath.Join(filepath.Dir(input), stem+"_transcript")
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, stem+"_transcript")
	}
	return strings.TrimSuffix(output, filepath.Ext(output))
}

// ReadJSON decodes a segments document.
func ReadJSON(r io.Reader) ([]Segment, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return doc.Segments, nil
}

// ReadJSONFile reads a segments document from disk.
func ReadJSONFile(path string) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, asrerr.IO("open "+path, err)
	}
	defer file.Close()
	return ReadJSON(file)
}

// Text joins segment text with single spaces.
func Text(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range nonEmpty(segments) {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}
