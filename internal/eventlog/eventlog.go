// Package eventlog implements an append-only JSONL audit log of inbound
// engine messages, for host applications that want a durable history of
// what [tools.zach/dev/discordrpc/internal/discord.Client] delivered. A
// [Writer] satisfies discord.EventSink, so it can be wired into
// discord.ClientOptions.EventLog directly.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ///////////////////////////////////////////////
// Record
// ///////////////////////////////////////////////

// Record is the JSON shape of a single logged line.
type Record struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ///////////////////////////////////////////////
// Writer
// ///////////////////////////////////////////////

// Writer appends [Record] values to a file, one JSON object per line.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewWriter opens (creating if necessary) the JSONL file at path for
// appending.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Writer{f: f, path: path}, nil
}

// Append marshals payload and writes it as a single JSONL record, stamped
// with the current time and eventType.
func (w *Writer) Append(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	rec := Record{Time: time.Now(), Type: eventType, Payload: data}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.f.Write(line)
	return err
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ///////////////////////////////////////////////
// Tail
// ///////////////////////////////////////////////

// Tail returns the last n lines of the event log at path, in chronological
// order, using the same circular-buffer-then-reorder technique as
// internal/logger.ReadTail.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	buf := make([]string, 0, n)
	idx := 0

	for scanner.Scan() {
		line := scanner.Text()
		if len(buf) < n {
			buf = append(buf, line)
		} else {
			buf[idx%n] = line
		}
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}

	if len(buf) < n {
		return buf, nil
	}
	start := idx % n
	ordered := make([]string, 0, n)
	ordered = append(ordered, buf[start:]...)
	ordered = append(ordered, buf[:start]...)
	return ordered, nil
}
