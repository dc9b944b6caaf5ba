// Package analyzer defines the page-analysis collaborator consumed by the
// audit engine, the structured score record it produces, and the weighted
// scoring formula shared by every code path that derives an overall score.
package analyzer

import (
	"context"
	"fmt"
	"time"
)

// PageAnalyzer produces a ScoreRecord for a single URL. Implementations are
// slow (seconds to minutes), probabilistic, and may fail; callers own
// deadlines via ctx.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url string) (ScoreRecord, error)
}

// CategoryScores holds the five category sub-scores, each 0-100.
type CategoryScores struct {
	Visibility    int `json:"visibility"`
	Technical     int `json:"technical"`
	Content       int `json:"content"`
	Accessibility int `json:"accessibility"`
	Authority     int `json:"authority"`
}

// ScoreRecord is the structured outcome of analyzing one page.
type ScoreRecord struct {
	URL             string         `json:"url"`
	Categories      CategoryScores `json:"categories"`
	Overall         int            `json:"overall"`
	Summary         string         `json:"summary,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	LoadTimeMs      int64          `json:"load_time_ms"`
	AnalyzedAt      time.Time      `json:"analyzed_at"`
}

// RequestError wraps an analyzer failure that carries an HTTP status from
// the analysis service or the target site.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyzer request failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("analyzer request failed (status %d)", e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }
