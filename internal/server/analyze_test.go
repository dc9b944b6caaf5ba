package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

func TestAnalyzeCachedFlag(t *testing.T) {
	a := stubAnalyzer{rec: analyzer.ScoreRecord{
		Categories: analyzer.CategoryScores{Visibility: 80, Technical: 60, Content: 70, Accessibility: 90, Authority: 50},
		Overall:    69,
	}}
	cached := analyzer.NewCachedAnalyzer(a, time.Hour)

	e := echo.New()
	NewAnalyzeHandler(cached, time.Second).Register(e.Group("/api"))

	do := func() AnalyzeResponse {
		body := `{"url":"https://example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp AnalyzeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response: %v", err)
		}
		return resp
	}

	first := do()
	if first.Cached {
		t.Fatalf("first analysis must be fresh")
	}
	if first.Score != 69 {
		t.Fatalf("expected score 69, got %d", first.Score)
	}

	second := do()
	if !second.Cached {
		t.Fatalf("second analysis must come from cache")
	}
}

func TestAnalyzeRequiresURL(t *testing.T) {
	cached := analyzer.NewCachedAnalyzer(stubAnalyzer{}, time.Hour)
	e := echo.New()
	NewAnalyzeHandler(cached, time.Second).Register(e.Group("/api"))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"url":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
