package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/geoscope-ai/geoscope/config"
	"github.com/geoscope-ai/geoscope/internal/audit"
)

// Scheduler starts recurring audits for configured domains. When a Redis
// client is set, a SetNX lock keeps replicas from double-starting the
// same entry.
type Scheduler struct {
	Entries []config.ScheduleEntry
	Orch    *audit.Orchestrator
	Rdb     *redis.Client
	Logger  *log.Logger

	mu      sync.Mutex
	lastRun map[int]time.Time
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	s.lastRun = make(map[int]time.Time)
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	for i, entry := range s.Entries {
		s.mu.Lock()
		last, ran := s.lastRun[i]
		s.mu.Unlock()

		var lastPtr *time.Time
		if ran {
			lastPtr = &last
		}
		if !isDue(entry.Cron, lastPtr, now) {
			continue
		}

		// distributed lock to avoid duplicate audits across replicas
		if s.Rdb != nil {
			lockKey := "sched:lock:" + entry.Domain
			ok, _ := s.Rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
			if !ok {
				continue
			}
		}

		sessionID, err := s.Orch.StartSession(entry.Domain, entry.Pages)
		if err != nil {
			s.Logger.Printf("scheduled audit for %s failed to start: %v", entry.Domain, err)
			continue
		}
		s.Logger.Printf("scheduled audit for %s started (session %s)", entry.Domain, sessionID)

		s.mu.Lock()
		s.lastRun[i] = now
		s.mu.Unlock()
	}
}

// isDue determines if an entry with cronSpec should run now based on its last start.
// Supports "@daily", "@hourly", and standard 5-field cron expressions.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
