package audit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geoscope-ai/geoscope/config"
	"github.com/geoscope-ai/geoscope/internal/analyzer"
	"github.com/geoscope-ai/geoscope/internal/telemetry"
)

// ResultRecorder receives every successfully analyzed page for retrieval
// outside this engine. Recording failures are logged, never propagated:
// losing a row must not fail an audit.
type ResultRecorder interface {
	RecordResult(ctx context.Context, url string, rec analyzer.ScoreRecord) error
}

// Orchestrator owns audit session lifecycles. Each session runs as a
// detached goroutine driving the page list sequentially; the goroutine has
// exclusive write access to its session entry for its entire lifetime.
type Orchestrator struct {
	store          *SessionStore
	runner         *PageJobRunner
	recorder       ResultRecorder
	maxPages       int
	sessionTimeout time.Duration
	logger         *log.Logger
	metrics        *telemetry.Metrics
}

// NewOrchestrator wires the engine together from configuration. The page
// analyzer is wrapped in the ConsistencyResolver, which in turn sits inside
// the per-page retry envelope.
func NewOrchestrator(cfg config.AuditConfig, a analyzer.PageAnalyzer, store *SessionStore, recorder ResultRecorder, logger *log.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	resolver := NewConsistencyResolver(a, cfg.VarianceThreshold, logger, metrics)
	runner := NewPageJobRunner(resolver, cfg.MaxAttempts, cfg.AttemptTimeout, cfg.RetryBaseDelay, logger, metrics)

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}
	sessionTimeout := cfg.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = 15 * time.Minute
	}
	return &Orchestrator{
		store:          store,
		runner:         runner,
		recorder:       recorder,
		maxPages:       maxPages,
		sessionTimeout: sessionTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// MaxPages reports the configured page-count cap.
func (o *Orchestrator) MaxPages() int { return o.maxPages }

// StartSession validates the request, registers the session, launches the
// run, and returns the session ID immediately; no page is analyzed before
// this call returns.
func (o *Orchestrator) StartSession(domain string, pageList []string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("domain is required")
	}
	if len(pageList) == 0 {
		return "", ErrNoPages
	}
	if len(pageList) > o.maxPages {
		return "", fmt.Errorf("%w: %d pages requested, maximum is %d", ErrTooManyPages, len(pageList), o.maxPages)
	}

	now := time.Now()
	sess := &Session{
		SessionID:   uuid.NewString(),
		Domain:      domain,
		PageList:    append([]string(nil), pageList...),
		State:       StateAnalyzing,
		PageResults: []PageResult{},
		CurrentStep: "Preparing analysis",
		StartedAt:   now,
		UpdatedAt:   now,
	}
	o.store.Put(sess)
	o.metrics.SessionStarted()
	o.logger.Printf("starting audit session %s for %s (%d pages)", sess.SessionID, domain, len(pageList))

	go o.run(sess.SessionID, domain, sess.PageList)

	return sess.SessionID, nil
}

// GetSnapshot returns the current state of a session.
func (o *Orchestrator) GetSnapshot(sessionID string) (Session, error) {
	return o.store.Snapshot(sessionID)
}

// run drives one session to a terminal state. Individual page failures are
// absorbed into PageResults; only a fault in the orchestration machinery
// itself fails the session.
func (o *Orchestrator) run(sessionID, domain string, pageList []string) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), o.sessionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("audit session %s panicked: %v", sessionID, r)
			o.failSession(sessionID, fmt.Sprintf("internal orchestration error: %v", r))
		}
	}()

	for i, path := range pageList {
		url := pageURL(domain, path)
		index := i
		o.store.Update(sessionID, func(s *Session) {
			s.CurrentPageIndex = index
			s.CurrentPageURL = url
			s.CurrentStep = "Analyzing page"
			s.CurrentStepDetails = fmt.Sprintf("Page %d of %d: %s", index+1, len(pageList), path)
		})

		progress := func(step, details, pageURL string) {
			o.store.Update(sessionID, func(s *Session) {
				s.CurrentStep = step
				s.CurrentStepDetails = details
				s.CurrentPageURL = pageURL
			})
		}

		result := o.runner.Run(ctx, url, path, progress)

		o.store.Update(sessionID, func(s *Session) {
			s.PageResults = append(s.PageResults, result)
			s.CompletedPageCount = len(s.PageResults)
		})

		if result.Succeeded() && o.recorder != nil {
			if err := o.recorder.RecordResult(ctx, url, *result.Analysis); err != nil {
				o.logger.Printf("recording result for %s failed: %v", url, err)
			}
		}
	}

	snap, err := o.store.Snapshot(sessionID)
	if err != nil {
		// Swept mid-run; nothing left to finalize.
		o.logger.Printf("audit session %s vanished before completion", sessionID)
		return
	}
	insights := ComputeInsights(snap.PageResults)

	now := time.Now()
	o.store.Update(sessionID, func(s *Session) {
		s.State = StateCompleted
		s.DomainInsights = &insights
		s.CompletedAt = &now
		s.CurrentStep = "Completed"
		s.CurrentStepDetails = fmt.Sprintf("Analyzed %d of %d pages", insights.CompletedPages, insights.TotalPages)
		s.CurrentPageURL = ""
	})
	o.metrics.SessionCompleted()
	o.logger.Printf("completed audit session %s in %v (%d/%d pages, avg score %d)",
		sessionID, time.Since(started), insights.CompletedPages, insights.TotalPages, insights.AverageScore)
}

func (o *Orchestrator) failSession(sessionID, msg string) {
	now := time.Now()
	o.store.Update(sessionID, func(s *Session) {
		s.State = StateFailed
		s.Error = msg
		s.DomainInsights = nil
		s.CompletedAt = &now
		s.CurrentStep = "Failed"
		s.CurrentStepDetails = msg
	})
	o.metrics.SessionFailed()
}

// pageURL joins the audited domain and a page path into an absolute URL.
func pageURL(domain, path string) string {
	base := domain
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")
	if path == "" || path == "/" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
