package transcript

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// LoadText reads a transcript as plain text. JSON segment files are joined;
// txt lines lose their [HH:MM:SS] prefix.
func LoadText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		segs, err := ReadJSONFile(path)
		if err != nil {
			return "", err
		}
		return Text(segs), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", asrerr.IO("read transcript", err)
	}
	return StripTimestamps(string(raw)), nil
}

// StripTimestamps joins txt transcript lines without their bracketed
// prefix.
func StripTimestamps(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "[") {
			if i := strings.Index(line, "]"); i >= 0 {
				line = strings.TrimSpace(line[i+1:])
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, " ")
}
