package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// flakyAnalyzer fails the first failures calls, then succeeds.
type flakyAnalyzer struct {
	failures int
	calls    int
	rec      analyzer.ScoreRecord
	err      error
}

func (f *flakyAnalyzer) Analyze(ctx context.Context, url string) (analyzer.ScoreRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return analyzer.ScoreRecord{}, f.err
	}
	return f.rec, nil
}

func TestRunnerSuccessShape(t *testing.T) {
	cats := analyzer.CategoryScores{Visibility: 80, Technical: 60, Content: 70, Accessibility: 90, Authority: 50}
	a := &flakyAnalyzer{rec: analyzer.ScoreRecord{URL: "https://example.com/about", Categories: cats, Overall: 69, LoadTimeMs: 840}}
	r := NewPageJobRunner(a, 3, time.Second, time.Millisecond, nil, nil)

	var steps []string
	progress := func(step, details, pageURL string) { steps = append(steps, step) }

	got := r.Run(context.Background(), "https://example.com/about", "/about", progress)
	if !got.Succeeded() {
		t.Fatalf("expected success, got error %q", got.Error)
	}
	if got.Score != 69 {
		t.Fatalf("expected score 69, got %d", got.Score)
	}
	if got.Error != "" {
		t.Fatalf("success must not carry an error, got %q", got.Error)
	}
	if got.LoadTimeMs != 840 {
		t.Fatalf("expected load time 840, got %d", got.LoadTimeMs)
	}
	if len(steps) < 3 || steps[0] != "Preparing analysis" || steps[len(steps)-1] != "Finalizing results" {
		t.Fatalf("unexpected progress steps: %v", steps)
	}
}

func TestRunnerRetriesThenSucceeds(t *testing.T) {
	a := &flakyAnalyzer{
		failures: 2,
		err:      &analyzer.RequestError{StatusCode: 503},
		rec:      analyzer.ScoreRecord{Overall: 75, Categories: analyzer.CategoryScores{Visibility: 75, Technical: 75, Content: 75, Accessibility: 75, Authority: 75}},
	}
	r := NewPageJobRunner(a, 3, time.Second, time.Millisecond, nil, nil)

	got := r.Run(context.Background(), "https://example.com", "/", nil)
	if !got.Succeeded() {
		t.Fatalf("expected third attempt to succeed, got %q", got.Error)
	}
	if a.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", a.calls)
	}
}

func TestRunnerExhaustionNeverErrors(t *testing.T) {
	a := &flakyAnalyzer{failures: 10, err: &analyzer.RequestError{StatusCode: 429}}
	r := NewPageJobRunner(a, 3, time.Second, time.Millisecond, nil, nil)

	got := r.Run(context.Background(), "https://example.com/blog", "/blog", nil)
	if got.Succeeded() {
		t.Fatalf("expected failure result")
	}
	if a.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", a.calls)
	}
	if got.Score != 0 {
		t.Fatalf("failed page must score 0, got %d", got.Score)
	}
	if got.Analysis != nil {
		t.Fatalf("failed page must not carry an analysis")
	}
	if !strings.HasPrefix(got.Error, string(ErrKindRateLimited)) {
		t.Fatalf("expected rate_limited classification, got %q", got.Error)
	}
}

func TestRunnerStopsWhenContextCancelled(t *testing.T) {
	a := &flakyAnalyzer{failures: 10, err: &analyzer.RequestError{StatusCode: 503}}
	r := NewPageJobRunner(a, 3, time.Second, time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan PageResult, 1)
	go func() { done <- r.Run(ctx, "https://example.com", "/", nil) }()

	select {
	case got := <-done:
		if got.Succeeded() {
			t.Fatalf("expected failure result after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not abandon backoff after cancellation")
	}
	if a.calls >= 3 {
		t.Fatalf("expected cancellation to cut retries short, got %d attempts", a.calls)
	}
}
