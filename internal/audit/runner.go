package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
	"github.com/geoscope-ai/geoscope/internal/telemetry"
)

// ProgressFunc publishes a fine-grained progress update into the owning
// session so pollers observe phase transitions between snapshots.
type ProgressFunc func(step, details, pageURL string)

// PageJobRunner turns "analyze one URL" into a PageResult that is always
// producible. Every failure mode is absorbed and classified; nothing
// escapes this layer as an error.
type PageJobRunner struct {
	analyzer       analyzer.PageAnalyzer
	maxAttempts    int
	attemptTimeout time.Duration
	baseDelay      time.Duration
	logger         *log.Logger
	metrics        *telemetry.Metrics
}

// NewPageJobRunner builds a runner. The analyzer is normally the
// ConsistencyResolver, so one attempt covers a full double-check pair.
func NewPageJobRunner(a analyzer.PageAnalyzer, maxAttempts int, attemptTimeout, baseDelay time.Duration, logger *log.Logger, metrics *telemetry.Metrics) *PageJobRunner {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if attemptTimeout <= 0 {
		attemptTimeout = 90 * time.Second
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[AUDIT] ", log.LstdFlags)
	}
	return &PageJobRunner{
		analyzer:       a,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		baseDelay:      baseDelay,
		logger:         logger,
		metrics:        metrics,
	}
}

// Run analyzes one page under the retry envelope and always returns a
// PageResult. ctx bounds the whole envelope (the session deadline); each
// attempt additionally runs under its own deadline.
func (r *PageJobRunner) Run(ctx context.Context, url, path string, progress ProgressFunc) PageResult {
	if progress == nil {
		progress = func(string, string, string) {}
	}

	started := time.Now()
	progress("Preparing analysis", fmt.Sprintf("Queued %s for fresh analysis", path), url)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		progress("Analyzing page", fmt.Sprintf("Analyzing website (attempt %d/%d)", attempt, r.maxAttempts), url)

		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		rec, err := r.analyzer.Analyze(attemptCtx, url)
		cancel()

		if err == nil {
			progress("Finalizing results", fmt.Sprintf("Completed analysis of %s", path), url)
			r.metrics.PageAnalyzed("success")
			r.metrics.ObservePageDuration(time.Since(started).Seconds())
			return PageResult{
				URL:        url,
				Path:       path,
				Analysis:   &rec,
				Score:      analyzer.OverallScore(rec.Categories),
				LoadTimeMs: rec.LoadTimeMs,
				Cached:     false,
			}
		}

		lastErr = err
		r.logger.Printf("page analysis attempt %d/%d failed for %s: %v", attempt, r.maxAttempts, url, err)

		if attempt == r.maxAttempts || ctx.Err() != nil {
			break
		}
		r.metrics.PageRetried()

		// Linear backoff: attempt_number * base_delay.
		delay := time.Duration(attempt) * r.baseDelay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	kind, msg := ClassifyPageError(lastErr)
	progress("Finalizing results", fmt.Sprintf("Analysis of %s failed (%s)", path, kind), url)
	r.metrics.PageAnalyzed("failure")
	r.metrics.ObservePageDuration(time.Since(started).Seconds())
	return PageResult{
		URL:    url,
		Path:   path,
		Score:  0,
		Error:  msg,
		Cached: false,
	}
}
