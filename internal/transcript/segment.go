// Package transcript holds timestamped segments and their file formats.
package transcript

import (
	"fmt"
	"math"
)

// Segment is one timestamped unit of transcribed text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// HMS renders whole seconds as HH:MM:SS.
func HMS(seconds float64) string {
	whole := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", whole/3600, (whole%3600)/60, whole%60)
}

// VTTTimestamp renders HH:MM:SS.mmm.
func VTTTimestamp(seconds float64) string { return msTimestamp(seconds, '.') }

// SRTTimestamp renders HH:MM:SS,mmm.
func SRTTimestamp(seconds float64) string { return msTimestamp(seconds, ',') }

func msTimestamp(seconds float64, sep byte) string {
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}
