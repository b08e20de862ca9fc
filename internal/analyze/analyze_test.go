package analyze

import (
	"strings"
	"testing"

	"github.com/kalambet/awarebot/internal/errlog"
)

func refusal(input string) errlog.Record {
	return errlog.Record{UserInput: input, ErrorType: errlog.CategoryRefusal}
}

func TestRunEmptyLog(t *testing.T) {
	report := Run(nil)
	if report.Candidate != nil {
		t.Errorf("expected no candidate for empty log, got %+v", report.Candidate)
	}
	if !strings.Contains(report.Text, "No errors logged") {
		t.Errorf("expected no-errors report, got %q", report.Text)
	}
}

func TestRunCandidateSelection(t *testing.T) {
	records := []errlog.Record{
		refusal("track bus 42"),
		refusal("Track Bus 42  "),
		refusal("track bus 42"),
		refusal("college news"),
		{UserInput: "track bus 42", ErrorType: errlog.CategoryAPIError},
	}

	report := Run(records)
	if report.Candidate == nil {
		t.Fatal("expected a candidate")
	}
	if report.Candidate.Category != errlog.CategoryRefusal {
		t.Errorf("expected Refusal candidate, got %q", report.Candidate.Category)
	}
	if report.Candidate.Input != "track bus 42" {
		t.Errorf("expected normalized input, got %q", report.Candidate.Input)
	}
	// The API error occurrence must not contribute.
	if report.Candidate.Count != 3 {
		t.Errorf("expected count 3, got %d", report.Candidate.Count)
	}
}

func TestRunSingleOccurrenceIsNotACandidate(t *testing.T) {
	report := Run([]errlog.Record{refusal("one-off question")})
	if report.Candidate != nil {
		t.Errorf("recurrence of 1 must not nominate, got %+v", report.Candidate)
	}
}

func TestRunNonLearnableCategoriesNeverNominate(t *testing.T) {
	records := []errlog.Record{
		{UserInput: "flaky question", ErrorType: errlog.CategoryAPIError},
		{UserInput: "flaky question", ErrorType: errlog.CategoryAPIError},
		{UserInput: "flaky question", ErrorType: errlog.CategorySimulatedLowConf},
		{UserInput: "flaky question", ErrorType: errlog.CategorySimulatedLowConf},
	}

	report := Run(records)
	if report.Candidate != nil {
		t.Errorf("transient categories must not nominate, got %+v", report.Candidate)
	}
}

func TestRunKnowledgeGapRecognized(t *testing.T) {
	// The classifier never emits Knowledge Gap, but logs written by other
	// tools may carry it; it ranks below Refusal at equal counts.
	records := []errlog.Record{
		refusal("bus fares"),
		refusal("bus fares"),
		{UserInput: "exam dates", ErrorType: errlog.CategoryKnowledgeGap},
		{UserInput: "exam dates", ErrorType: errlog.CategoryKnowledgeGap},
	}

	report := Run(records)
	if report.Candidate == nil {
		t.Fatal("expected a candidate")
	}
	if report.Candidate.Category != errlog.CategoryRefusal || report.Candidate.Input != "bus fares" {
		t.Errorf("tie must break by category priority, got %+v", report.Candidate)
	}

	// With a strictly higher count, Knowledge Gap wins.
	records = append(records, errlog.Record{UserInput: "exam dates", ErrorType: errlog.CategoryKnowledgeGap})
	report = Run(records)
	if report.Candidate.Category != errlog.CategoryKnowledgeGap || report.Candidate.Count != 3 {
		t.Errorf("expected Knowledge Gap candidate with count 3, got %+v", report.Candidate)
	}
}

func TestRunReportListsCategoryCounts(t *testing.T) {
	records := []errlog.Record{
		refusal("a"),
		refusal("b"),
		{UserInput: "c", ErrorType: errlog.CategoryAPIError},
	}

	report := Run(records)
	if !strings.Contains(report.Text, "Refusal: 2 occurrence(s)") {
		t.Errorf("missing refusal tally in report:\n%s", report.Text)
	}
	if !strings.Contains(report.Text, "API Error: 1 occurrence(s)") {
		t.Errorf("missing API error tally in report:\n%s", report.Text)
	}
}

func TestRunFeedbackTallyIsInformational(t *testing.T) {
	records := []errlog.Record{
		{UserInput: "medication for cough", ErrorType: errlog.CategoryAPIError, Feedback: "it should suggest a pharmacist"},
		{UserInput: "medication for cough", ErrorType: errlog.CategoryAPIError, Feedback: "still wrong"},
		{UserInput: "skipped one", ErrorType: errlog.CategorySimulatedLowConf, Feedback: errlog.FeedbackSkipped},
	}

	report := Run(records)
	if !strings.Contains(report.Text, "'medication for cough' (2 feedback instance(s))") {
		t.Errorf("expected feedback tally in report:\n%s", report.Text)
	}
	// The skipped record's category is not learnable, so its input can only
	// surface through the feedback tally.
	if strings.Contains(report.Text, "'skipped one'") {
		t.Errorf("skip sentinel must not count as feedback:\n%s", report.Text)
	}
	// Feedback never makes a candidate by itself.
	if report.Candidate != nil {
		t.Errorf("feedback tally must not affect candidate selection, got %+v", report.Candidate)
	}
}
