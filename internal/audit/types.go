// Package audit implements the multi-page analysis orchestration engine:
// session lifecycle, per-page retry envelope, double-check consistency
// resolution, and domain-wide insight aggregation.
package audit

import (
	"time"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// SessionState is the lifecycle state of an audit session.
type SessionState string

const (
	StateAnalyzing SessionState = "analyzing"
	StateCompleted SessionState = "completed"
	StateFailed    SessionState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Session is one multi-page audit request. It is mutated exclusively by the
// orchestrator goroutine that owns it and becomes immutable once terminal.
type Session struct {
	SessionID          string          `json:"session_id"`
	Domain             string          `json:"domain"`
	PageList           []string        `json:"page_list"`
	State              SessionState    `json:"state"`
	CurrentPageIndex   int             `json:"current_page_index"`
	CompletedPageCount int             `json:"completed_page_count"`
	PageResults        []PageResult    `json:"page_results"`
	CurrentStep        string          `json:"current_step,omitempty"`
	CurrentStepDetails string          `json:"current_step_details,omitempty"`
	CurrentPageURL     string          `json:"current_page_url,omitempty"`
	StartedAt          time.Time       `json:"started_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	DomainInsights     *DomainInsights `json:"domain_insights,omitempty"`
	Error              string          `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to readers while the owning
// goroutine keeps writing.
func (s *Session) Clone() Session {
	out := *s
	out.PageList = append([]string(nil), s.PageList...)
	out.PageResults = make([]PageResult, len(s.PageResults))
	for i, pr := range s.PageResults {
		out.PageResults[i] = pr.clone()
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.DomainInsights != nil {
		di := *s.DomainInsights
		out.DomainInsights = &di
	}
	return out
}

// PageResult is the per-page outcome within a session. Exactly one of the
// success branch (Analysis) and the failure branch (Error) is populated;
// Score is always present and is 0 on failure.
type PageResult struct {
	URL        string                `json:"url"`
	Path       string                `json:"path"`
	Analysis   *analyzer.ScoreRecord `json:"analysis,omitempty"`
	Score      int                   `json:"score"`
	LoadTimeMs int64                 `json:"load_time_ms,omitempty"`
	Error      string                `json:"error,omitempty"`
	Cached     bool                  `json:"cached"`
}

// Succeeded reports whether the page produced an analysis.
func (p PageResult) Succeeded() bool { return p.Analysis != nil }

func (p PageResult) clone() PageResult {
	out := p
	if p.Analysis != nil {
		rec := *p.Analysis
		rec.Recommendations = append([]string(nil), p.Analysis.Recommendations...)
		out.Analysis = &rec
	}
	return out
}

// PageRef identifies a page and its score within insight aggregates.
type PageRef struct {
	URL   string `json:"url"`
	Path  string `json:"path"`
	Score int    `json:"score"`
}

// DomainInsights aggregates all page results of a completed session.
type DomainInsights struct {
	TotalPages     int     `json:"total_pages"`
	CompletedPages int     `json:"completed_pages"`
	AverageScore   int     `json:"average_score"`
	BestPage       PageRef `json:"best_page"`
	WorstPage      PageRef `json:"worst_page"`
	SuccessRate    int     `json:"success_rate"`
}
