package classify

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/model"
)

// scriptedRand returns queued values in order; IntN always returns 0 so the
// first fallback phrase is deterministic.
type scriptedRand struct {
	floats []float64
	pos    int
}

func (r *scriptedRand) Float64() float64 {
	if r.pos >= len(r.floats) {
		return 0.99
	}
	v := r.floats[r.pos]
	r.pos++
	return v
}

func (r *scriptedRand) IntN(n int) int { return 0 }

func TestClassifyAPIError(t *testing.T) {
	c := NewWithRand(&scriptedRand{}, 0)

	out := c.Classify(model.Reply{}, errors.New("connection refused"))
	if out.Category != errlog.CategoryAPIError {
		t.Errorf("expected API error category, got %q", out.Category)
	}
	if out.Confidence != 0.0 {
		t.Errorf("expected confidence 0.0, got %v", out.Confidence)
	}
	if !strings.Contains(out.Text, "technical difficulty") {
		t.Errorf("expected generic technical-difficulty text, got %q", out.Text)
	}
	if !strings.Contains(out.Detail, "connection refused") {
		t.Errorf("expected diagnostic detail, got %q", out.Detail)
	}
}

func TestClassifyContentBlocked(t *testing.T) {
	c := NewWithRand(&scriptedRand{}, 0)

	out := c.Classify(model.Reply{BlockReason: "SAFETY"}, nil)
	if out.Category != errlog.CategoryContentBlocked {
		t.Errorf("expected content blocked category, got %q", out.Category)
	}
	if out.Confidence != 0.1 {
		t.Errorf("expected confidence 0.1, got %v", out.Confidence)
	}
	if !strings.Contains(out.Text, "SAFETY") {
		t.Errorf("expected block reason named in text, got %q", out.Text)
	}
}

func TestClassifyMalformedResponse(t *testing.T) {
	c := NewWithRand(&scriptedRand{}, 0)

	out := c.Classify(model.Reply{}, nil)
	if out.Category != errlog.CategoryMalformedResponse {
		t.Errorf("expected malformed category, got %q", out.Category)
	}
	if out.Confidence != 0.2 {
		t.Errorf("expected confidence 0.2, got %v", out.Confidence)
	}
	if !slices.Contains(fallbackResponses, out.Text) {
		t.Errorf("expected a fallback phrase, got %q", out.Text)
	}
}

func TestClassifyRefusalKeepsText(t *testing.T) {
	c := NewWithRand(&scriptedRand{floats: []float64{0.0}}, 0.10)

	original := "I cannot help with live tracking of bus 42."
	out := c.Classify(model.Reply{Text: original}, nil)
	if out.Category != errlog.CategoryRefusal {
		t.Errorf("expected refusal category, got %q", out.Category)
	}
	if out.Confidence != 0.3 {
		t.Errorf("expected confidence 0.3, got %v", out.Confidence)
	}
	if out.Text != original {
		t.Errorf("refusal text must be preserved verbatim, got %q", out.Text)
	}
}

func TestClassifyRefusalPhrases(t *testing.T) {
	c := NewWithRand(&scriptedRand{}, 0)

	cases := []string{
		"I am unable to verify that.",
		"Unfortunately I don't have information about that college.",
		"As an AI, I avoid medical advice.",
		"My apologies, but I must decline.",
		"Sadly, i lack the ability to browse.",
	}
	for _, text := range cases {
		out := c.Classify(model.Reply{Text: text}, nil)
		if out.Category != errlog.CategoryRefusal {
			t.Errorf("%q: expected refusal, got %q", text, out.Category)
		}
	}
}

func TestClassifySimulatedLowConfidence(t *testing.T) {
	// First draw 0.05 < 0.10 triggers the branch; second draw 0.5 sets the
	// confidence to 0.1 + 0.5*0.4 = 0.3.
	c := NewWithRand(&scriptedRand{floats: []float64{0.05, 0.5}}, 0.10)

	out := c.Classify(model.Reply{Text: "A perfectly fine answer."}, nil)
	if out.Category != errlog.CategorySimulatedLowConf {
		t.Errorf("expected simulated low confidence, got %q", out.Category)
	}
	if out.Confidence < 0.1 || out.Confidence > 0.5 {
		t.Errorf("confidence %v outside [0.1, 0.5]", out.Confidence)
	}
	if !slices.Contains(fallbackResponses, out.Text) {
		t.Errorf("expected fallback phrase, got %q", out.Text)
	}
}

func TestClassifyClean(t *testing.T) {
	// Draw above the failure rate: no simulated failure.
	c := NewWithRand(&scriptedRand{floats: []float64{0.95}}, 0.10)

	out := c.Classify(model.Reply{Text: "Bus 42 arrives at 9:15."}, nil)
	if !out.Clean() {
		t.Errorf("expected clean outcome, got %q", out.Category)
	}
	if out.Text != "Bus 42 arrives at 9:15." {
		t.Errorf("clean text must pass through unchanged, got %q", out.Text)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewWithRand(&scriptedRand{floats: []float64{0.0}}, 1.0)

	// An error outranks a block reason and refusal text.
	out := c.Classify(model.Reply{Text: "I cannot", BlockReason: "SAFETY"}, errors.New("boom"))
	if out.Category != errlog.CategoryAPIError {
		t.Errorf("error must win, got %q", out.Category)
	}

	// A block reason outranks refusal text.
	out = c.Classify(model.Reply{Text: "I cannot", BlockReason: "SAFETY"}, nil)
	if out.Category != errlog.CategoryContentBlocked {
		t.Errorf("block must outrank refusal, got %q", out.Category)
	}

	// A refusal outranks the simulated draw even at rate 1.0.
	out = c.Classify(model.Reply{Text: "I cannot do that."}, nil)
	if out.Category != errlog.CategoryRefusal {
		t.Errorf("refusal must outrank simulated failure, got %q", out.Category)
	}
}
