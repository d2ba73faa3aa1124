package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/core"
)

type stubLLM struct{}

func (stubLLM) Generate(_ context.Context, _ string, _ int) (string, error) {
	return "Findings:\n- pages load slowly on mobile connections\nRecommendations:\n- compress images and enable caching", nil
}

func newTestServer() *Server {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = false
	orch := core.NewOrchestratorWithProvider(cfg, stubLLM{}, nil)
	return New(cfg, orch, nil)
}

const analysisBody = `{
  "business_context": {"business_type": "local service", "industry": "plumbing", "location": "Austin, TX"},
  "baseline_metrics": {"seo_score": 60, "page_speed": {"mobile": 45, "desktop": 78}}
}`

func TestStartAnalysisAccepted(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(analysisBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var started AnalysisStarted
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.ID == "" {
		t.Fatalf("expected a run id")
	}
}

func TestStartAnalysisRejectsEmptyContext(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusPollingUntilTerminal(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(analysisBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	var started AnalysisStarted
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var status StatusResponse
	for {
		rec = httptest.NewRecorder()
		s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/"+started.ID+"/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll: expected 200, got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Status == string(core.StatusCompleted) || status.Status == string(core.StatusFailed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never settled: %+v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(status.Agents) != len(core.AllAgentTypes()) {
		t.Fatalf("expected %d agent rows, got %d", len(core.AllAgentTypes()), len(status.Agents))
	}

	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/"+started.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for full result, got %d", rec.Code)
	}
	var run core.ComprehensiveAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ActionPlan == nil {
		t.Fatalf("expected action plan in finished run")
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/no-such-run", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
}
