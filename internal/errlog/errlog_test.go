package errlog

import (
	"errors"
	"testing"
	"time"

	"github.com/kalambet/awarebot/internal/docstore"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func openTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := docstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	clock := fixedClock{now: time.Date(2025, 4, 4, 9, 30, 0, 0, time.UTC)}
	return OpenWithClock(store, "errorlog.json", clock)
}

func conf(v float64) *float64 { return &v }

func TestAppendAssignsIndexAndTimestamp(t *testing.T) {
	log := openTestLog(t)

	idx, err := log.Append(Record{
		UserInput:           "track bus 42",
		BotResponse:         "I cannot help with that.",
		ErrorType:           CategoryRefusal,
		SimulatedConfidence: conf(0.3),
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}

	recs := log.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped on append")
	}
	if recs[0].Feedback != "" {
		t.Errorf("expected no feedback on fresh record, got %q", recs[0].Feedback)
	}
}

func TestAppendIndicesAreSequential(t *testing.T) {
	log := openTestLog(t)

	for want := range 3 {
		idx, err := log.Append(Record{UserInput: "x", ErrorType: CategoryAPIError})
		if err != nil {
			t.Fatalf("Append error: %v", err)
		}
		if idx != want {
			t.Errorf("expected index %d, got %d", want, idx)
		}
	}
}

func TestAttachFeedback(t *testing.T) {
	log := openTestLog(t)

	idx, err := log.Append(Record{UserInput: "hello", ErrorType: CategoryRefusal})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}

	if err := log.AttachFeedback(idx, "the bot should know this"); err != nil {
		t.Fatalf("AttachFeedback error: %v", err)
	}
	if got := log.Records()[idx].Feedback; got != "the bot should know this" {
		t.Errorf("feedback not stored: %q", got)
	}
}

func TestAttachFeedbackOutOfRange(t *testing.T) {
	log := openTestLog(t)

	if _, err := log.Append(Record{UserInput: "hello", ErrorType: CategoryRefusal}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	for _, idx := range []int{-1, 1, 42} {
		err := log.AttachFeedback(idx, "late feedback")
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if got := log.Records()[0].Feedback; got != "" {
		t.Errorf("failed attach must not mutate, got feedback %q", got)
	}
}

func TestSkipUsesSentinel(t *testing.T) {
	log := openTestLog(t)

	idx, _ := log.Append(Record{UserInput: "hello", ErrorType: CategoryRefusal})
	if err := log.Skip(idx); err != nil {
		t.Fatalf("Skip error: %v", err)
	}
	if got := log.Records()[idx].Feedback; got != FeedbackSkipped {
		t.Errorf("expected skip sentinel, got %q", got)
	}
}

func TestClearInvalidatesIndices(t *testing.T) {
	log := openTestLog(t)

	idx, _ := log.Append(Record{UserInput: "hello", ErrorType: CategoryRefusal})
	if err := log.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if log.Len() != 0 {
		t.Errorf("expected empty log after clear, got %d records", log.Len())
	}
	if err := log.AttachFeedback(idx, "too late"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange after clear, got %v", err)
	}
}

func TestLogSurvivesReopen(t *testing.T) {
	store, err := docstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	log := Open(store, "errorlog.json")
	if _, err := log.Append(Record{UserInput: "persist me", ErrorType: CategoryAPIError, SimulatedConfidence: conf(0.0)}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	reopened := Open(store, "errorlog.json")
	recs := reopened.Records()
	if len(recs) != 1 || recs[0].UserInput != "persist me" {
		t.Errorf("expected persisted record after reopen, got %v", recs)
	}
	if recs[0].SimulatedConfidence == nil || *recs[0].SimulatedConfidence != 0.0 {
		t.Errorf("confidence not round-tripped: %v", recs[0].SimulatedConfidence)
	}
}
