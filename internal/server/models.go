package server

import "github.com/geoscope-ai/geoscope/internal/analyzer"

// HTTPError is the unified JSON error payload.
type HTTPError struct {
	Error string `json:"error"`
}

// StartAuditRequest accepts a domain plus the ordered page list to audit.
type StartAuditRequest struct {
	Domain string   `json:"domain"`
	Pages  []string `json:"pages"`
}

// StartAuditResponse returns the polling handle for an accepted audit.
type StartAuditResponse struct {
	SessionID  string `json:"session_id"`
	TotalPages int    `json:"total_pages"`
}

// AnalyzeRequest asks for a single-page analysis.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse carries a single-page result, cache state included.
type AnalyzeResponse struct {
	Analysis analyzer.ScoreRecord `json:"analysis"`
	Score    int                  `json:"score"`
	Cached   bool                 `json:"cached"`
}
