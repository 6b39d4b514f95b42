// Package history implements the append-only per-agent history log (C10):
// one JSON object per line, one line per finished session.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/connectonion/connectonion-go/internal/observability"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// Writer appends HistoryRecords to a single file, one JSON object per line.
// Write failures are logged, never returned: the agent loop's persist step
// must never fail the caller's input() call over a full disk or a missing
// directory.
type Writer struct {
	path   string
	logger *observability.Logger

	mu sync.Mutex
}

// New builds a writer for path, creating its parent directory on first
// write. Pass an empty logger to suppress failure logging.
func New(path string, logger *observability.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// DefaultPath resolves the per-agent log location: a project-relative
// ".co/logs/<name>.log" if a ".co" directory exists in or above the current
// working directory, else "<home>/.connectonion/agents/<name>/behavior.json".
func DefaultPath(agentName string) string {
	if dir, ok := findProjectRoot(); ok {
		return filepath.Join(dir, ".co", "logs", agentName+".log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".connectonion", "agents", agentName, "behavior.json")
}

func findProjectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".co")); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Append serializes record as one JSON line and appends it to the file,
// per the HistorySink contract (agent.HistorySink).
func (w *Writer) Append(record models.HistoryRecord) {
	line, err := json.Marshal(record)
	if err != nil {
		w.logf("history: encode record: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			w.logf("history: create log dir %s: %v", dir, err)
			return
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.logf("history: open log %s: %v", w.path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		w.logf("history: write log %s: %v", w.path, err)
	}
}

func (w *Writer) logf(format string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Error(context.Background(), fmt.Sprintf(format, args...))
}
