// Package trace reads back the per-run event timelines that
// internal/observability.FileEventStore appends to an agent's
// "<name>.trace.jsonl" file, for replay and debugging. Adapted from the
// teacher's TraceReader/TraceReplayer (internal/agent/trace.go), minus the
// trace-header/redaction machinery that belonged to its multi-channel
// product and doesn't apply here.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/connectonion/connectonion-go/internal/observability"
)

// Reader streams observability.Events back from a JSONL trace file in the
// order they were recorded.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps an already-open reader, e.g. a file or an in-memory buffer
// in tests.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Open opens path and returns a Reader over it; the caller must close the
// returned io.Closer.
func Open(path string) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	return NewReader(f), f, nil
}

// ReadEvent reads the next event. Returns io.EOF once the file is exhausted.
func (r *Reader) ReadEvent() (*observability.Event, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("trace: read event: %w", err)
		}
		return nil, io.EOF
	}
	var event observability.Event
	if err := json.Unmarshal(r.scanner.Bytes(), &event); err != nil {
		return nil, fmt.Errorf("trace: decode event: %w", err)
	}
	return &event, nil
}

// ReadAll reads every remaining event into a slice.
func (r *Reader) ReadAll() ([]*observability.Event, error) {
	var events []*observability.Event
	for {
		event, err := r.ReadEvent()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// ReadRun opens path and returns only the events belonging to runID (or all
// events if runID is empty), as a built Timeline ready for FormatTimeline.
func ReadRun(path, runID string) (*observability.Timeline, error) {
	reader, closer, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	events, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if runID == "" {
		return observability.BuildTimeline(events), nil
	}
	filtered := make([]*observability.Event, 0, len(events))
	for _, e := range events {
		if e.RunID == runID {
			filtered = append(filtered, e)
		}
	}
	return observability.BuildTimeline(filtered), nil
}
