package caloriebot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryRecorder keeps a log of delivered analyses.
type HistoryRecorder interface {
	Record(entry HistoryEntry) error
}

// HistoryEntry is one analysis delivered to a subject.
type HistoryEntry struct {
	ID        string       `json:"id"`
	SubjectID string       `json:"subject_id"`
	Analysis  DishAnalysis `json:"analysis"`
	At        time.Time    `json:"at"`
}

// NewHistoryEntry stamps an analysis with a fresh id and the current time.
func NewHistoryEntry(subjectID string, analysis DishAnalysis) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Analysis:  analysis,
		At:        time.Now(),
	}
}

// MemoryHistory is an append-only in-process log. It is not persisted.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{entries: make([]HistoryEntry, 0)}
}

func (h *MemoryHistory) Record(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

// For returns the entries recorded for subjectID, oldest first.
func (h *MemoryHistory) For(subjectID string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, 0)
	for _, e := range h.entries {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out
}

// NoOpHistory discards all entries.
type NoOpHistory struct{}

func NewNoOpHistory() *NoOpHistory {
	return &NoOpHistory{}
}

func (nop *NoOpHistory) Record(entry HistoryEntry) error {
	return nil
}

// JSONLinesHistory writes each entry as a JSON line (stdout for Lambda/CloudWatch).
type JSONLinesHistory struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewStdoutHistory() *JSONLinesHistory {
	return NewJSONLinesHistory(os.Stdout)
}

func NewJSONLinesHistory(w io.Writer) *JSONLinesHistory {
	return &JSONLinesHistory{writer: w}
}

func (l *JSONLinesHistory) Record(entry HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintln(l.writer, string(data)); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}
