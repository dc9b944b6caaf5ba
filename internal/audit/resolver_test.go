package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// scriptedAnalyzer pops one scripted outcome per call. Concurrent callers
// may observe the outcomes in either order.
type scriptedAnalyzer struct {
	mu       sync.Mutex
	outcomes []scriptedOutcome
	calls    int
}

type scriptedOutcome struct {
	rec analyzer.ScoreRecord
	err error
}

func (s *scriptedAnalyzer) Analyze(ctx context.Context, url string) (analyzer.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.outcomes) == 0 {
		return analyzer.ScoreRecord{}, errors.New("script exhausted")
	}
	out := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return out.rec, out.err
}

func record(overall int, categories analyzer.CategoryScores, summary string) analyzer.ScoreRecord {
	return analyzer.ScoreRecord{
		URL:        "https://example.com/pricing",
		Categories: categories,
		Overall:    overall,
		Summary:    summary,
	}
}

func TestResolverConsistentReturnsSingleRun(t *testing.T) {
	cats := analyzer.CategoryScores{Visibility: 70, Technical: 72, Content: 71, Accessibility: 70, Authority: 74}
	a := &scriptedAnalyzer{outcomes: []scriptedOutcome{
		{rec: record(71, cats, "run one")},
		{rec: record(74, cats, "run two")},
	}}
	r := NewConsistencyResolver(a, 10, nil, nil)

	got, err := r.Analyze(context.Background(), "https://example.com/pricing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.calls != 2 {
		t.Fatalf("expected two analysis runs, got %d", a.calls)
	}
	// Within threshold one run is returned verbatim, never a blend.
	if got.Overall != 71 && got.Overall != 74 {
		t.Fatalf("expected one run's overall (71 or 74), got %d", got.Overall)
	}
}

func TestResolverMergesHighVariance(t *testing.T) {
	a := &scriptedAnalyzer{outcomes: []scriptedOutcome{
		{rec: record(50, analyzer.CategoryScores{Visibility: 40, Technical: 50, Content: 55, Accessibility: 60, Authority: 50}, "short")},
		{rec: record(68, analyzer.CategoryScores{Visibility: 70, Technical: 64, Content: 71, Accessibility: 66, Authority: 68}, "much longer summary")},
	}}
	r := NewConsistencyResolver(a, 10, nil, nil)

	got, err := r.Analyze(context.Background(), "https://example.com/pricing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Overall != 59 {
		t.Fatalf("expected merged overall 59, got %d", got.Overall)
	}
	if got.Categories.Visibility != 55 {
		t.Fatalf("expected merged visibility 55, got %d", got.Categories.Visibility)
	}
	if got.Categories.Technical != 57 {
		t.Fatalf("expected merged technical 57, got %d", got.Categories.Technical)
	}
	if got.Summary != "much longer summary" {
		t.Fatalf("expected longer summary to win, got %q", got.Summary)
	}
}

func TestResolverDegradedOnSingleFailure(t *testing.T) {
	cats := analyzer.CategoryScores{Visibility: 80, Technical: 60, Content: 70, Accessibility: 90, Authority: 50}
	a := &scriptedAnalyzer{outcomes: []scriptedOutcome{
		{err: errors.New("analysis run failed")},
		{rec: record(69, cats, "survivor")},
	}}
	r := NewConsistencyResolver(a, 10, nil, nil)

	got, err := r.Analyze(context.Background(), "https://example.com/pricing")
	if err != nil {
		t.Fatalf("expected survivor result, got error: %v", err)
	}
	if got.Overall != 69 || got.Summary != "survivor" {
		t.Fatalf("expected surviving run, got overall %d summary %q", got.Overall, got.Summary)
	}
}

func TestResolverFailsWhenBothRunsFail(t *testing.T) {
	a := &scriptedAnalyzer{outcomes: []scriptedOutcome{
		{err: errors.New("first failure")},
		{err: errors.New("second failure")},
	}}
	r := NewConsistencyResolver(a, 10, nil, nil)

	if _, err := r.Analyze(context.Background(), "https://example.com/pricing"); err == nil {
		t.Fatalf("expected error when both runs fail")
	}
}
