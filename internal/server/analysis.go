package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sitescope/sitescope/internal/agent/core"
)

// AnalysisRequest is the POST /api/analysis body: the caller supplies
// the business context plus pre-measured baseline metrics.
type AnalysisRequest struct {
	BusinessContext core.BusinessContext `json:"business_context"`
	BaselineMetrics core.BaselineMetrics `json:"baseline_metrics"`
}

// AnalysisStarted is the immediate response; the ID is pollable at once.
type AnalysisStarted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AgentStatus is one row of the lightweight status view.
type AgentStatus struct {
	AgentType string `json:"agent_type"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
}

// StatusResponse is the polling view: run-level status plus per-agent
// progress, without the full result payload.
type StatusResponse struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Progress int           `json:"progress"`
	Agents   []AgentStatus `json:"agents"`
}

func (s *Server) startAnalysis(c echo.Context) error {
	var req AnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BusinessContext.Industry == "" && req.BusinessContext.BusinessType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "business_context is required")
	}

	id := s.orch.StartAnalysis(c.Request().Context(), req.BusinessContext, req.BaselineMetrics)
	s.logger.Printf("started analysis %s for %s/%s", id, req.BusinessContext.BusinessType, req.BusinessContext.Industry)
	return c.JSON(http.StatusAccepted, AnalysisStarted{ID: id, Status: string(core.StatusPending)})
}

func (s *Server) listAnalyses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": s.orch.ListAnalyses()})
}

func (s *Server) getAnalysis(c echo.Context) error {
	run, ok := s.orch.GetAnalysis(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) getStatus(c echo.Context) error {
	run, ok := s.orch.GetAnalysis(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	resp := StatusResponse{
		ID:       run.ID,
		Status:   string(run.Status),
		Progress: run.Progress,
	}
	for _, r := range run.AgentResults {
		resp.Agents = append(resp.Agents, AgentStatus{
			AgentType: string(r.AgentType),
			Status:    string(r.Status),
			Progress:  r.Progress,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
