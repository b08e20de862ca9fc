// Package errlog keeps the append-only record of failed chat interactions.
package errlog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/awarebot/internal/docstore"
)

// ErrIndexOutOfRange is returned when a record index does not exist.
var ErrIndexOutOfRange = errors.New("log index out of range")

// Category tags a logged interaction with the kind of failure observed.
// The string values are the on-disk tags; they match the historical log
// format, so existing documents stay readable.
type Category string

const (
	CategoryRefusal           Category = "Refusal"
	CategorySimulatedLowConf  Category = "Simulated Low Confidence"
	CategoryContentBlocked    Category = "Content Blocked"
	CategoryMalformedResponse Category = "API Response Format Error"
	CategoryAPIError          Category = "API Error"

	// CategoryKnowledgeGap is reserved: the classifier never emits it, but
	// the analyzer recognizes it in documents produced by other writers.
	CategoryKnowledgeGap Category = "Knowledge Gap"
)

// FeedbackSkipped marks a record whose feedback prompt was explicitly
// declined by the user.
const FeedbackSkipped = "skipped"

// Record is one logged interaction. Feedback is the only field mutated
// after append; everything else is immutable.
type Record struct {
	Timestamp           time.Time `json:"timestamp"`
	UserInput           string    `json:"user_input"`
	BotResponse         string    `json:"bot_response"`
	ErrorType           Category  `json:"error_type"`
	SimulatedConfidence *float64  `json:"simulated_confidence,omitempty"`
	ErrorDetail         string    `json:"error_detail,omitempty"`
	Feedback            string    `json:"feedback,omitempty"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Log is the ordered, append-only sequence of failure records, flushed to
// its document after every mutation. Record indices are stable until Clear.
type Log struct {
	store *docstore.Store
	name  string
	clock Clock

	mu      sync.Mutex
	records []Record
}

// Open loads the log from its document in store, falling back to an empty
// log if the document is missing or corrupt.
func Open(store *docstore.Store, name string) *Log {
	return OpenWithClock(store, name, realClock{})
}

// OpenWithClock is like Open but with a custom clock (for testing).
func OpenWithClock(store *docstore.Store, name string, clock Clock) *Log {
	return &Log{
		store:   store,
		name:    name,
		clock:   clock,
		records: docstore.Load(store, name, []Record{}),
	}
}

// Append stamps the record with the current time, clears any feedback,
// appends it, and persists the log. The in-memory index of the new record
// is always returned; a non-nil error means the observation survived in
// memory but persistence is unreliable.
func (l *Log) Append(rec Record) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.Timestamp = l.clock.Now()
	rec.Feedback = ""
	l.records = append(l.records, rec)
	idx := len(l.records) - 1

	if err := l.store.Save(l.name, l.records); err != nil {
		return idx, fmt.Errorf("persisting log: %w", err)
	}
	return idx, nil
}

// AttachFeedback overwrites the feedback field of the record at index and
// persists. An out-of-range index mutates nothing.
func (l *Log) AttachFeedback(index int, feedback string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d (log has %d records)", ErrIndexOutOfRange, index, len(l.records))
	}

	l.records[index].Feedback = feedback
	if err := l.store.Save(l.name, l.records); err != nil {
		return fmt.Errorf("persisting feedback: %w", err)
	}
	return nil
}

// Skip marks the record at index as having had its feedback prompt declined.
func (l *Log) Skip(index int) error {
	return l.AttachFeedback(index, FeedbackSkipped)
}

// Clear removes all records and persists the empty log. Previously returned
// indices are invalid afterwards.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = []Record{}
	if err := l.store.Save(l.name, l.records); err != nil {
		return fmt.Errorf("persisting cleared log: %w", err)
	}
	return nil
}

// Records returns a copy of all records in insertion order.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
