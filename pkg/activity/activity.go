// Package activity holds the panel's output log and its one-line status summary.
//
// Components never render anything themselves: they hand Entries and Status
// updates to a Recorder, and the presentation layer (or the journal) decides
// what to do with them.
package activity

import (
	"sync"
	"time"
)

// Level classifies an entry for display and filtering.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Tone is the color class of the status summary.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneWarning
	ToneBad
)

// Entry is one human-readable line of the output log.
type Entry struct {
	Time    time.Time
	Level   Level
	Source  string // "relay", "service", "panel"
	RuleID  string // empty when not about a rule
	Message string
}

// Status is the single-line summary shown in the status bar.
type Status struct {
	Text string
	Tone Tone
}

// Recorder receives log lines and status updates.
type Recorder interface {
	Record(e Entry)
	SetStatus(s Status)
}

// DefaultMaxEntries bounds the in-memory log.
const DefaultMaxEntries = 500

// Log is an in-memory, bounded Recorder safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	status  Status
	now     func() time.Time
}

// NewLog creates a log keeping at most max entries (DefaultMaxEntries when max <= 0).
func NewLog(max int) *Log {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Log{
		max:    max,
		status: Status{Text: "Status: No active forwarding", Tone: ToneBad},
		now:    time.Now,
	}
}

// Record appends e, stamping it if Time is zero and dropping the oldest entry when full.
func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// SetStatus replaces the status summary.
func (l *Log) SetStatus(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = s
}

// Status returns the current status summary.
func (l *Log) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Entries returns a copy of all retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns the last n entries, oldest first.
func (l *Log) Tail(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

type multi []Recorder

// Multi fans every call out to each non-nil recorder in order.
func Multi(recorders ...Recorder) Recorder {
	out := make(multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Record(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, r := range m {
		r.Record(e)
	}
}

func (m multi) SetStatus(s Status) {
	for _, r := range m {
		r.SetStatus(s)
	}
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Entry)     {}
func (discard) SetStatus(Status) {}
