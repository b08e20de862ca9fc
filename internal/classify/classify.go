// Package classify turns the raw outcome of a model call into a verdict:
// clean, or one of a fixed set of failure categories, possibly with a
// rewritten user-facing response.
package classify

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/model"
)

// defaultFailureRate is the per-interaction probability of simulating a
// low-confidence failure. The branch exists to exercise the logging path
// often enough for demos and tests; it is not a real confidence estimate.
const defaultFailureRate = 0.10

const apiErrorMessage = "I'm sorry, I encountered a technical difficulty trying to generate a response."

// fallbackResponses are shown when the model produced nothing usable.
var fallbackResponses = []string{
	"I'm sorry, I encountered an issue or couldn't understand clearly. Could you please rephrase?",
	"Hmm, I'm having trouble with that request. Let's try something else.",
	"My apologies, I can't seem to process that right now.",
}

// refusalPhrases mark a reply as a refusal when present as a substring of
// the lower-cased text.
var refusalPhrases = []string{
	"i cannot",
	"i am unable",
	"i don't have information",
	"my apologies, but i",
	"as an ai",
	"i lack the ability",
}

// Rand is the source of randomness for the simulated-failure branch and
// fallback phrase choice. Tests substitute a fixed sequence.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
func (systemRand) IntN(n int) int   { return rand.IntN(n) }

// Outcome is the terminal verdict for one interaction. Text is the exact
// response shown to the user (rewritten for some categories). Confidence
// is the simulated confidence attached to the log record.
type Outcome struct {
	Category   errlog.Category
	Text       string
	Confidence float64
	Detail     string
}

// Clean reports whether the interaction produced no failure. Clean
// outcomes are never logged.
func (o Outcome) Clean() bool { return o.Category == "" }

// Classifier applies the fixed failure-detection policy to model replies.
type Classifier struct {
	rng         Rand
	failureRate float64
}

// New creates a Classifier with the default 10% simulated failure rate.
func New() *Classifier {
	return &Classifier{rng: systemRand{}, failureRate: defaultFailureRate}
}

// NewWithRate creates a Classifier with a configured failure rate.
func NewWithRate(failureRate float64) *Classifier {
	return &Classifier{rng: systemRand{}, failureRate: failureRate}
}

// NewWithRand creates a Classifier with a custom random source and failure
// rate (for testing and configuration).
func NewWithRand(rng Rand, failureRate float64) *Classifier {
	return &Classifier{rng: rng, failureRate: failureRate}
}

// Classify evaluates the outcome of a model call in fixed priority order:
// API error, safety block, malformed payload, refusal phrase, simulated
// low confidence, clean. The returned Outcome carries the final response
// text; only refusals and clean replies keep the model's text verbatim.
func (c *Classifier) Classify(reply model.Reply, callErr error) Outcome {
	if callErr != nil {
		return Outcome{
			Category:   errlog.CategoryAPIError,
			Text:       apiErrorMessage,
			Confidence: 0.0,
			Detail:     callErr.Error(),
		}
	}

	if reply.BlockReason != "" {
		return Outcome{
			Category:   errlog.CategoryContentBlocked,
			Text:       fmt.Sprintf("My response was blocked due to safety settings (%s). Please try phrasing differently.", reply.BlockReason),
			Confidence: 0.1,
			Detail:     "blocked due to " + reply.BlockReason,
		}
	}

	if reply.Text == "" {
		return Outcome{
			Category:   errlog.CategoryMalformedResponse,
			Text:       c.fallback(),
			Confidence: 0.2,
			Detail:     "unexpected response structure",
		}
	}

	lowered := strings.ToLower(reply.Text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowered, phrase) {
			// The refusal itself is shown; no rewrite.
			return Outcome{
				Category:   errlog.CategoryRefusal,
				Text:       reply.Text,
				Confidence: 0.3,
			}
		}
	}

	if c.failureRate > 0 && c.rng.Float64() < c.failureRate {
		return Outcome{
			Category:   errlog.CategorySimulatedLowConf,
			Text:       c.fallback(),
			Confidence: 0.1 + c.rng.Float64()*0.4,
		}
	}

	return Outcome{Text: reply.Text, Confidence: 1.0}
}

func (c *Classifier) fallback() string {
	return fallbackResponses[c.rng.IntN(len(fallbackResponses))]
}
