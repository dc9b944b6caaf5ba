// Package recorder persists successful page analyses for retrieval outside
// the orchestration engine.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// Postgres stores one row per analyzed page.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres opens a connection pool against dsn and verifies it.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Postgres{DB: db}, nil
}

// RecordResult inserts one page analysis row.
func (p *Postgres) RecordResult(ctx context.Context, url string, rec analyzer.ScoreRecord) error {
	narrative, err := json.Marshal(struct {
		Summary         string   `json:"summary,omitempty"`
		Recommendations []string `json:"recommendations,omitempty"`
	}{rec.Summary, rec.Recommendations})
	if err != nil {
		return fmt.Errorf("marshal narrative: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO page_analyses (
			id, url, visibility, technical, content, accessibility, authority,
			overall, load_time_ms, narrative, analyzed_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())`,
		uuid.NewString(), url,
		rec.Categories.Visibility, rec.Categories.Technical, rec.Categories.Content,
		rec.Categories.Accessibility, rec.Categories.Authority,
		rec.Overall, rec.LoadTimeMs, narrative, rec.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page analysis: %w", err)
	}
	return nil
}

// LatestResult returns the most recently recorded analysis for url, if any.
func (p *Postgres) LatestResult(ctx context.Context, url string) (analyzer.ScoreRecord, bool, error) {
	var (
		rec       analyzer.ScoreRecord
		narrative []byte
	)
	err := p.DB.QueryRowContext(ctx, `
		SELECT url, visibility, technical, content, accessibility, authority,
		       overall, load_time_ms, narrative, analyzed_at
		FROM page_analyses WHERE url = $1
		ORDER BY created_at DESC LIMIT 1`, url).Scan(
		&rec.URL, &rec.Categories.Visibility, &rec.Categories.Technical,
		&rec.Categories.Content, &rec.Categories.Accessibility, &rec.Categories.Authority,
		&rec.Overall, &rec.LoadTimeMs, &narrative, &rec.AnalyzedAt,
	)
	if err == sql.ErrNoRows {
		return analyzer.ScoreRecord{}, false, nil
	}
	if err != nil {
		return analyzer.ScoreRecord{}, false, fmt.Errorf("query page analysis: %w", err)
	}
	var n struct {
		Summary         string   `json:"summary"`
		Recommendations []string `json:"recommendations"`
	}
	if len(narrative) > 0 {
		if err := json.Unmarshal(narrative, &n); err != nil {
			return analyzer.ScoreRecord{}, false, fmt.Errorf("decode narrative: %w", err)
		}
	}
	rec.Summary = n.Summary
	rec.Recommendations = n.Recommendations
	return rec, true, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.DB.Close() }

// Noop discards every record. Used when postgres is not configured.
type Noop struct{}

func (Noop) RecordResult(context.Context, string, analyzer.ScoreRecord) error { return nil }
