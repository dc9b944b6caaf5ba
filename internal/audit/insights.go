package audit

import "math"

// ComputeInsights aggregates all page results of a session into domain-wide
// statistics. Best/worst reduce over every result, successes and failures
// alike, with the earliest index winning ties. A failed page carries score
// 0 and can legitimately surface as the worst page.
func ComputeInsights(results []PageResult) DomainInsights {
	insights := DomainInsights{TotalPages: len(results)}
	if len(results) == 0 {
		return insights
	}

	sum := 0
	best, worst := results[0], results[0]
	for _, pr := range results {
		if pr.Succeeded() {
			insights.CompletedPages++
			sum += pr.Score
		}
		if pr.Score > best.Score {
			best = pr
		}
		if pr.Score < worst.Score {
			worst = pr
		}
	}

	if insights.CompletedPages > 0 {
		insights.AverageScore = int(math.Round(float64(sum) / float64(insights.CompletedPages)))
	}
	insights.BestPage = PageRef{URL: best.URL, Path: best.Path, Score: best.Score}
	insights.WorstPage = PageRef{URL: worst.URL, Path: worst.Path, Score: worst.Score}
	insights.SuccessRate = int(math.Round(100 * float64(insights.CompletedPages) / float64(insights.TotalPages)))
	return insights
}
