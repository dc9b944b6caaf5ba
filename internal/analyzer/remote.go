package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/geoscope-ai/geoscope/config"
)

// RemoteAnalyzer calls the external scraping + model pipeline over HTTP.
// The pipeline itself (fetch strategies, prompting, schema extraction) lives
// behind the analysis service; geoscope only consumes its structured output.
type RemoteAnalyzer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteAnalyzer builds an analyzer against the configured analysis service.
func NewRemoteAnalyzer(cfg config.AnalyzerConfig) (*RemoteAnalyzer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("analyzer endpoint not configured (analyzer.endpoint)")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &RemoteAnalyzer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// Analyze requests a fresh analysis for url. The overall score is always
// recomputed locally from the category sub-scores so every mode shares one
// formula, whatever the service reports.
func (a *RemoteAnalyzer) Analyze(ctx context.Context, url string) (ScoreRecord, error) {
	body, err := json.Marshal(analyzeRequest{URL: url})
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("analyze %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ScoreRecord{}, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("analyze %s", url)}
	}

	var rec ScoreRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return ScoreRecord{}, fmt.Errorf("decode analyze response for %s: %w", url, err)
	}
	rec.URL = url
	rec.Overall = OverallScore(rec.Categories)
	if rec.LoadTimeMs == 0 {
		rec.LoadTimeMs = time.Since(started).Milliseconds()
	}
	if rec.AnalyzedAt.IsZero() {
		rec.AnalyzedAt = time.Now()
	}
	return rec, nil
}
