package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geoscope-ai/geoscope/internal/audit"
)

// AuditsHandler exposes the multi-page orchestration engine: start a
// session, poll its snapshot.
type AuditsHandler struct {
	orch   *audit.Orchestrator
	logger *log.Logger
}

func NewAuditsHandler(orch *audit.Orchestrator) *AuditsHandler {
	return &AuditsHandler{
		orch:   orch,
		logger: log.New(log.Writer(), "[AUDITS] ", log.LstdFlags),
	}
}

func (h *AuditsHandler) Register(g *echo.Group) {
	g.POST("/audits", h.start)
	g.GET("/audits/:session_id", h.poll)
}

// start accepts an audit request and returns its polling handle immediately.
//
//	@Summary	Start multi-page audit
//	@Tags		audits
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		StartAuditRequest	true	"Audit request"
//	@Success	202		{object}	StartAuditResponse
//	@Failure	400		{object}	HTTPError
//	@Router		/api/audits [post]
func (h *AuditsHandler) start(c echo.Context) error {
	var req StartAuditRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	sessionID, err := h.orch.StartSession(req.Domain, req.Pages)
	if err != nil {
		// Validation failures only: ErrNoPages, ErrTooManyPages, missing domain.
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusAccepted, StartAuditResponse{
		SessionID:  sessionID,
		TotalPages: len(req.Pages),
	})
}

// poll returns the current session snapshot.
//
//	@Summary	Poll audit session
//	@Tags		audits
//	@Param		session_id	path	string	true	"Session ID"
//	@Produce	json
//	@Success	200	{object}	audit.Session
//	@Failure	404	{object}	HTTPError
//	@Router		/api/audits/{session_id} [get]
func (h *AuditsHandler) poll(c echo.Context) error {
	sessionID := c.Param("session_id")
	snap, err := h.orch.GetSnapshot(sessionID)
	if err != nil {
		if errors.Is(err, audit.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}
