// Package session orchestrates one chat session: knowledge lookups, model
// calls, tool-call splicing, failure classification, and error logging.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kalambet/awarebot/internal/classify"
	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/knowledge"
	"github.com/kalambet/awarebot/internal/model"
	"github.com/kalambet/awarebot/internal/persona"
	"github.com/kalambet/awarebot/internal/toolcall"
)

// NoLogIndex marks a turn that produced no (reliable) log record.
const NoLogIndex = -1

const defaultHistoryDepth = 5

const emptyInputMessage = "Please provide some input!"

// Deps are the collaborators a Session is built from.
type Deps struct {
	Provider   model.Provider
	Classifier *classify.Classifier
	Knowledge  *knowledge.Base
	Log        *errlog.Log
	Tools      *toolcall.Registry
	Persona    persona.Persona

	// HistoryDepth is the number of past turns sent as model context;
	// 0 means the default (5).
	HistoryDepth int
}

// Turn is the outcome of one interaction. LogIndex is NoLogIndex unless a
// failure record was appended and durably persisted; a persisted index can
// be used later to attach feedback.
type Turn struct {
	Text     string
	Category errlog.Category
	LogIndex int
}

// Failed reports whether the turn was classified as a failure.
func (t Turn) Failed() bool { return t.Category != "" }

// Session drives the conversation for a single user. One interaction is
// fully classified, logged, and flushed before the next is accepted.
type Session struct {
	id   string
	deps Deps

	mu      sync.Mutex
	history []model.Message
}

// New creates a Session.
func New(deps Deps) *Session {
	if deps.HistoryDepth <= 0 {
		deps.HistoryDepth = defaultHistoryDepth
	}
	if deps.Tools == nil {
		deps.Tools = toolcall.NewRegistry()
	}
	return &Session{
		id:   uuid.NewString(),
		deps: deps,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Greeting returns the persona's opening message.
func (s *Session) Greeting() string { return s.deps.Persona.Greeting }

// Persona returns the persona the session runs with.
func (s *Session) Persona() persona.Persona { return s.deps.Persona }

// Respond runs one interaction end to end: input validation, knowledge
// lookup (hit short-circuits the model and is never logged), model call,
// tool-call splicing, classification, and error logging. It never fails;
// model and storage problems surface as classified turns and logged
// warnings.
func (s *Session) Respond(ctx context.Context, input string) Turn {
	if strings.TrimSpace(input) == "" {
		return Turn{Text: emptyInputMessage, LogIndex: NoLogIndex}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if resp, ok := s.deps.Knowledge.Lookup(input); ok {
		slog.Debug("knowledge hit", "session", s.id, "input", knowledge.Normalize(input))
		s.remember(input, resp)
		return Turn{Text: resp, LogIndex: NoLogIndex}
	}

	reply, err := s.deps.Provider.Generate(ctx, s.window(input))
	outcome := s.deps.Classifier.Classify(reply, err)

	text := outcome.Text
	if outcome.Clean() {
		if inv, ok := toolcall.Parse(text); ok {
			text = s.deps.Tools.Execute(inv)
		}
	}

	turn := Turn{Text: text, Category: outcome.Category, LogIndex: NoLogIndex}
	if !outcome.Clean() {
		confidence := outcome.Confidence
		idx, logErr := s.deps.Log.Append(errlog.Record{
			UserInput:           input,
			BotResponse:         text,
			ErrorType:           outcome.Category,
			SimulatedConfidence: &confidence,
			ErrorDetail:         outcome.Detail,
		})
		if logErr != nil {
			// The observation lives in memory but may not survive a
			// restart; don't hand out an index we can't stand behind.
			slog.Warn("error log persistence failed", "session", s.id, "error", logErr)
		} else {
			turn.LogIndex = idx
		}
		slog.Debug("interaction logged",
			"session", s.id,
			"category", outcome.Category,
			"confidence", outcome.Confidence,
			"index", idx,
		)
	}

	s.remember(input, text)
	return turn
}

// window assembles the model context: the most recent history turns plus
// the current input.
func (s *Session) window(input string) []model.Message {
	keep := s.deps.HistoryDepth * 2
	start := len(s.history) - keep
	if start < 0 {
		start = 0
	}

	msgs := make([]model.Message, 0, keep+1)
	msgs = append(msgs, s.history[start:]...)
	msgs = append(msgs, model.Message{Role: "user", Content: input})
	return msgs
}

// remember appends the finished turn to the conversation history.
func (s *Session) remember(input, reply string) {
	s.history = append(s.history,
		model.Message{Role: "user", Content: input},
		model.Message{Role: "model", Content: reply},
	)
}

// History returns a copy of the conversation so far.
func (s *Session) History() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.history))
	copy(out, s.history)
	return out
}
