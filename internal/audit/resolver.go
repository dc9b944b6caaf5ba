package audit

import (
	"context"
	"fmt"
	"log"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
	"github.com/geoscope-ai/geoscope/internal/telemetry"
)

// ConsistencyResolver runs the underlying analyzer twice in parallel on the
// same URL and reconciles divergent results. The analyzer is probabilistic
// and can score the same page differently across calls.
type ConsistencyResolver struct {
	analyzer  analyzer.PageAnalyzer
	threshold int
	logger    *log.Logger
	metrics   *telemetry.Metrics
}

// NewConsistencyResolver builds a resolver with the given variance threshold
// (points of absolute score difference above which results are merged).
func NewConsistencyResolver(a analyzer.PageAnalyzer, threshold int, logger *log.Logger, metrics *telemetry.Metrics) *ConsistencyResolver {
	if logger == nil {
		logger = log.New(log.Writer(), "[AUDIT] ", log.LstdFlags)
	}
	if threshold <= 0 {
		threshold = 10
	}
	return &ConsistencyResolver{analyzer: a, threshold: threshold, logger: logger, metrics: metrics}
}

type analyzeOutcome struct {
	rec analyzer.ScoreRecord
	err error
}

// Analyze performs the double-check analysis for url. Both runs share ctx,
// so a caller deadline bounds the pair as a single logical attempt.
func (r *ConsistencyResolver) Analyze(ctx context.Context, url string) (analyzer.ScoreRecord, error) {
	ch := make(chan analyzeOutcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			rec, err := r.analyzer.Analyze(ctx, url)
			ch <- analyzeOutcome{rec: rec, err: err}
		}()
	}
	first := <-ch
	second := <-ch

	switch {
	case first.err != nil && second.err != nil:
		return analyzer.ScoreRecord{}, fmt.Errorf("double-check analysis failed for %s: %w", url, first.err)
	case first.err != nil:
		r.logger.Printf("double-check degraded for %s: one run failed: %v", url, first.err)
		r.metrics.VarianceResolved("degraded")
		return second.rec, nil
	case second.err != nil:
		r.logger.Printf("double-check degraded for %s: one run failed: %v", url, second.err)
		r.metrics.VarianceResolved("degraded")
		return first.rec, nil
	}

	diff := maxVariance(first.rec, second.rec)
	if diff > r.threshold {
		r.logger.Printf("high variance for %s: max category diff %d (overall %d vs %d), merging runs",
			url, diff, first.rec.Overall, second.rec.Overall)
		r.metrics.VarianceResolved("merged")
		return mergeRecords(first.rec, second.rec), nil
	}

	r.metrics.VarianceResolved("consistent")
	return first.rec, nil
}

// maxVariance returns the largest absolute difference across the five
// categories and the overall score.
func maxVariance(a, b analyzer.ScoreRecord) int {
	diffs := []int{
		absDiff(a.Categories.Visibility, b.Categories.Visibility),
		absDiff(a.Categories.Technical, b.Categories.Technical),
		absDiff(a.Categories.Content, b.Categories.Content),
		absDiff(a.Categories.Accessibility, b.Categories.Accessibility),
		absDiff(a.Categories.Authority, b.Categories.Authority),
		absDiff(a.Overall, b.Overall),
	}
	max := 0
	for _, d := range diffs {
		if d > max {
			max = d
		}
	}
	return max
}

// mergeRecords resolves high-variance runs: each category becomes the
// rounded mean, the overall is the rounded mean of the two overalls, and
// the longer narrative wins per field.
func mergeRecords(a, b analyzer.ScoreRecord) analyzer.ScoreRecord {
	merged := a
	merged.Categories = analyzer.CategoryScores{
		Visibility:    analyzer.RoundMean(a.Categories.Visibility, b.Categories.Visibility),
		Technical:     analyzer.RoundMean(a.Categories.Technical, b.Categories.Technical),
		Content:       analyzer.RoundMean(a.Categories.Content, b.Categories.Content),
		Accessibility: analyzer.RoundMean(a.Categories.Accessibility, b.Categories.Accessibility),
		Authority:     analyzer.RoundMean(a.Categories.Authority, b.Categories.Authority),
	}
	merged.Overall = analyzer.RoundMean(a.Overall, b.Overall)
	if len(b.Summary) > len(a.Summary) {
		merged.Summary = b.Summary
	}
	if len(b.Recommendations) > len(a.Recommendations) {
		merged.Recommendations = b.Recommendations
	}
	if b.AnalyzedAt.After(a.AnalyzedAt) {
		merged.AnalyzedAt = b.AnalyzedAt
	}
	return merged
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
