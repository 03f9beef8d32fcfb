package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// Journal keeps the wall-clock stamped lines of a live session and saves
// them as live_<date>_<time>.txt.
type Journal struct {
	mu    sync.Mutex
	lines []string
	path  string
	clock func() time.Time
}

func NewJournal(folder string, clock func() time.Time) *Journal {
	if clock == nil {
		clock = time.Now
	}
	name := fmt.Sprintf("live_%s.txt", clock().Format("2006-01-02_15-04-05"))
	return &Journal{path: filepath.Join(folder, name), clock: clock}
}

// Path is where Save writes.
func (j *Journal) Path() string { return j.path }

// Add records text and returns the formatted line. Blank text is ignored
// and returns "".
func (j *Journal) Add(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	line := fmt.Sprintf("[%s] %s", j.clock().Format("15:04:05"), text)
	j.mu.Lock()
	j.lines = append(j.lines, line)
	j.mu.Unlock()
	return line
}

func (j *Journal) Lines() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...)
}

// Save rewrites the file with every line so far and returns the line
// count. An empty journal writes nothing.
func (j *Journal) Save() (int, error) {
	lines := j.Lines()
	if len(lines) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return 0, asrerr.IO("create save folder", err)
	}
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(j.path, []byte(data), 0o644); err != nil {
		return 0, asrerr.IO("write "+j.path, err)
	}
	return len(lines), nil
}
