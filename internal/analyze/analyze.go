// Package analyze implements the frequency analysis over the error log
// that nominates a learning candidate for the knowledge base.
package analyze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/awarebot/internal/errlog"
)

// learnableCategories, in priority order, are the only categories whose
// recurring inputs may become learning candidates. Transient technical
// failures (API errors, blocks, malformed payloads) are excluded: learning
// a canned answer for an outage would paper over the outage.
var learnableCategories = []errlog.Category{
	errlog.CategoryRefusal,
	errlog.CategoryKnowledgeGap,
}

// minRecurrence is the count a recurring input must exceed to be nominated.
// A single occurrence is treated as incidental, not systemic.
const minRecurrence = 1

const topFeedbackInputs = 5

// Candidate is a (category, input) pair nominated for manual promotion
// into the knowledge base.
type Candidate struct {
	Category errlog.Category `json:"category"`
	Input    string          `json:"input"`
	Count    int             `json:"count"`
}

// Report is the outcome of one analysis run. Candidate is nil when no
// input recurred often enough in a learnable category.
type Report struct {
	Text      string     `json:"text"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// Run tallies failure categories and recurring inputs across the log and
// nominates at most one learning candidate: the single highest-recurrence
// input among learnable categories, ties broken by category priority.
func Run(records []errlog.Record) Report {
	var out []string
	out = append(out, "--- Analyzing Error Logs ---")

	if len(records) == 0 {
		out = append(out, "No errors logged.", "--- Analysis Complete ---")
		return Report{Text: strings.Join(out, "\n")}
	}

	categoryCounts := make(map[errlog.Category]int)
	inputsByCategory := make(map[errlog.Category]map[string]int)
	feedbackCounts := make(map[string]int)

	for _, rec := range records {
		categoryCounts[rec.ErrorType]++

		input := normalize(rec.UserInput)
		if input == "" {
			continue
		}

		if inputsByCategory[rec.ErrorType] == nil {
			inputsByCategory[rec.ErrorType] = make(map[string]int)
		}
		inputsByCategory[rec.ErrorType][input]++

		if rec.Feedback != "" && rec.Feedback != errlog.FeedbackSkipped {
			feedbackCounts[input]++
		}
	}

	out = append(out, "Error Type Summary:")
	for _, cat := range sortedByCount(categoryCounts) {
		out = append(out, fmt.Sprintf("- %s: %d occurrence(s)", cat, categoryCounts[cat]))
	}

	var candidate *Candidate
	best := minRecurrence
	for _, cat := range learnableCategories {
		inputs := inputsByCategory[cat]
		if len(inputs) == 0 {
			continue
		}
		topInput, topCount := mostFrequent(inputs)
		out = append(out, fmt.Sprintf("\nMost frequent input for '%s': '%s' (%d times)", cat, topInput, topCount))
		if topCount > best {
			best = topCount
			candidate = &Candidate{Category: cat, Input: topInput, Count: topCount}
		}
	}

	if len(feedbackCounts) > 0 {
		out = append(out, "\nInputs with User Feedback Provided (Top 5):")
		for i, input := range sortedByCount(feedbackCounts) {
			if i >= topFeedbackInputs {
				break
			}
			out = append(out, fmt.Sprintf("- '%s' (%d feedback instance(s))", input, feedbackCounts[input]))
		}
	}

	out = append(out, "--- Analysis Complete ---")
	return Report{Text: strings.Join(out, "\n"), Candidate: candidate}
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// mostFrequent returns the highest-count key; count ties break
// lexicographically so reports are deterministic.
func mostFrequent(counts map[string]int) (string, int) {
	var bestKey string
	bestCount := -1
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < bestKey) {
			bestKey, bestCount = key, count
		}
	}
	return bestKey, bestCount
}

// sortedByCount returns keys ordered by descending count, ties
// lexicographic.
func sortedByCount[K ~string](counts map[K]int) []K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
