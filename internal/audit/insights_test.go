package audit

import (
	"testing"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

func success(path string, score int) PageResult {
	return PageResult{
		URL:      "https://example.com" + path,
		Path:     path,
		Analysis: &analyzer.ScoreRecord{Overall: score},
		Score:    score,
	}
}

func failure(path, msg string) PageResult {
	return PageResult{URL: "https://example.com" + path, Path: path, Score: 0, Error: msg}
}

func TestComputeInsightsAveragesSuccessesOnly(t *testing.T) {
	got := ComputeInsights([]PageResult{
		success("/", 80),
		failure("/blog", "timeout: context deadline exceeded"),
		success("/pricing", 71),
	})

	if got.TotalPages != 3 || got.CompletedPages != 2 {
		t.Fatalf("expected 2/3 completed, got %d/%d", got.CompletedPages, got.TotalPages)
	}
	// Mean of 80 and 71; the failed page does not drag the average.
	if got.AverageScore != 76 {
		t.Fatalf("expected average 76, got %d", got.AverageScore)
	}
	if got.SuccessRate != 67 {
		t.Fatalf("expected success rate 67, got %d", got.SuccessRate)
	}
}

func TestComputeInsightsFailedPageCanBeWorst(t *testing.T) {
	got := ComputeInsights([]PageResult{
		success("/", 80),
		failure("/broken", "not_found: analyzer request failed (status 404)"),
	})

	if got.BestPage.Path != "/" || got.BestPage.Score != 80 {
		t.Fatalf("unexpected best page: %+v", got.BestPage)
	}
	if got.WorstPage.Path != "/broken" || got.WorstPage.Score != 0 {
		t.Fatalf("expected failed page as worst, got %+v", got.WorstPage)
	}
}

func TestComputeInsightsTiesFavorEarlierPage(t *testing.T) {
	got := ComputeInsights([]PageResult{
		success("/a", 70),
		success("/b", 70),
	})

	if got.BestPage.Path != "/a" {
		t.Fatalf("expected first page to win best tie, got %s", got.BestPage.Path)
	}
	if got.WorstPage.Path != "/a" {
		t.Fatalf("expected first page to win worst tie, got %s", got.WorstPage.Path)
	}
}

func TestComputeInsightsAllFailed(t *testing.T) {
	got := ComputeInsights([]PageResult{
		failure("/a", "network: connection refused"),
		failure("/b", "timeout: context deadline exceeded"),
	})

	if got.CompletedPages != 0 || got.AverageScore != 0 || got.SuccessRate != 0 {
		t.Fatalf("expected zeroed aggregates, got %+v", got)
	}
	if got.WorstPage.Path != "/a" {
		t.Fatalf("expected first failure as worst, got %s", got.WorstPage.Path)
	}
}

func TestComputeInsightsEmpty(t *testing.T) {
	got := ComputeInsights(nil)
	if got.TotalPages != 0 || got.BestPage.URL != "" {
		t.Fatalf("expected zero-value insights, got %+v", got)
	}
}
