package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// AnalyzeHandler runs a single-page analysis inline. Unlike the audit
// session flow, results here go through the read cache.
type AnalyzeHandler struct {
	cached  *analyzer.CachedAnalyzer
	timeout time.Duration
	logger  *log.Logger
}

func NewAnalyzeHandler(cached *analyzer.CachedAnalyzer, timeout time.Duration) *AnalyzeHandler {
	return &AnalyzeHandler{
		cached:  cached,
		timeout: timeout,
		logger:  log.New(log.Writer(), "[ANALYZE] ", log.LstdFlags),
	}
}

func (h *AnalyzeHandler) Register(g *echo.Group) {
	g.POST("/analyze", h.analyze)
}

// analyze scores one URL synchronously.
//
//	@Summary	Analyze a single page
//	@Tags		analyze
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		AnalyzeRequest	true	"Page to analyze"
//	@Success	200		{object}	AnalyzeResponse
//	@Failure	400		{object}	HTTPError
//	@Failure	502		{object}	HTTPError
//	@Router		/api/analyze [post]
func (h *AnalyzeHandler) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	wasCached := h.cached.Cached(url)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rec, err := h.cached.Analyze(ctx, url)
	if err != nil {
		h.logger.Printf("analysis failed for %s: %v", url, err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, AnalyzeResponse{
		Analysis: rec,
		Score:    rec.Overall,
		Cached:   wasCached,
	})
}
