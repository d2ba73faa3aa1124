package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sitescope/sitescope/config"
)

// Telemetry records run and agent execution events. Counters are exported
// through a dedicated prometheus registry so the server can mount them on
// /metrics without dragging in default collectors.
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	agentsTotal    *prometheus.CounterVec
	agentDuration  *prometheus.HistogramVec
	runDuration    prometheus.Histogram
	llmCallsTotal  *prometheus.CounterVec
	llmTokensTotal prometheus.Counter

	mu      sync.RWMutex
	metrics Metrics
}

// Metrics is a point-in-time snapshot of the in-process counters.
type Metrics struct {
	TotalRuns       int64
	SuccessfulRuns  int64
	FailedRuns      int64
	AgentExecutions map[string]int64
	AgentFailures   map[string]int64
	LLMCalls        int64
	LLMFailures     int64
	LLMTokensUsed   int64
}

// RunEvent describes one completed analysis run.
type RunEvent struct {
	RunID    string
	Success  bool
	Error    string
	Duration time.Duration
}

// AgentEvent describes one agent execution.
type AgentEvent struct {
	AgentType string
	Success   bool
	Error     string
	Duration  time.Duration
}

// LLMEvent describes one generative-text call.
type LLMEvent struct {
	Model      string
	Success    bool
	TokensUsed int64
	Duration   time.Duration
}

// NewTelemetry creates a telemetry instance with registered collectors.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	ns := cfg.Namespace
	if ns == "" {
		ns = "sitescope"
	}
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "runs_total", Help: "Analysis runs by outcome.",
		}, []string{"outcome"}),
		agentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "agent_executions_total", Help: "Agent executions by type and outcome.",
		}, []string{"agent_type", "outcome"}),
		agentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "agent_duration_seconds", Help: "Agent execution duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent_type"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "run_duration_seconds", Help: "End-to-end run duration.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		llmCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "llm_calls_total", Help: "Generative text calls by outcome.",
		}, []string{"model", "outcome"}),
		llmTokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "llm_tokens_total", Help: "Total tokens consumed by generative calls.",
		}),
		metrics: Metrics{
			AgentExecutions: make(map[string]int64),
			AgentFailures:   make(map[string]int64),
		},
	}
	reg.MustRegister(t.runsTotal, t.agentsTotal, t.agentDuration, t.runDuration, t.llmCallsTotal, t.llmTokensTotal)
	return t
}

// RecordRunEvent records the outcome of one analysis run.
func (t *Telemetry) RecordRunEvent(ev RunEvent) {
	outcome := "success"
	if !ev.Success {
		outcome = "failure"
	}
	t.runsTotal.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(ev.Duration.Seconds())

	t.mu.Lock()
	t.metrics.TotalRuns++
	if ev.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}
	t.mu.Unlock()

	if t.config.Enabled {
		t.logger.Printf("run %s finished success=%t in %v", ev.RunID, ev.Success, ev.Duration)
	}
}

// RecordAgentEvent records one agent execution.
func (t *Telemetry) RecordAgentEvent(ev AgentEvent) {
	outcome := "success"
	if !ev.Success {
		outcome = "failure"
	}
	t.agentsTotal.WithLabelValues(ev.AgentType, outcome).Inc()
	t.agentDuration.WithLabelValues(ev.AgentType).Observe(ev.Duration.Seconds())

	t.mu.Lock()
	t.metrics.AgentExecutions[ev.AgentType]++
	if !ev.Success {
		t.metrics.AgentFailures[ev.AgentType]++
	}
	t.mu.Unlock()
}

// RecordLLMEvent records one generative-text call.
func (t *Telemetry) RecordLLMEvent(ev LLMEvent) {
	outcome := "success"
	if !ev.Success {
		outcome = "failure"
	}
	t.llmCallsTotal.WithLabelValues(ev.Model, outcome).Inc()
	if ev.TokensUsed > 0 {
		t.llmTokensTotal.Add(float64(ev.TokensUsed))
	}

	t.mu.Lock()
	t.metrics.LLMCalls++
	if !ev.Success {
		t.metrics.LLMFailures++
	}
	t.metrics.LLMTokensUsed += ev.TokensUsed
	t.mu.Unlock()
}

// GetMetrics returns a copy of the current counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := t.metrics
	snapshot.AgentExecutions = make(map[string]int64, len(t.metrics.AgentExecutions))
	for k, v := range t.metrics.AgentExecutions {
		snapshot.AgentExecutions[k] = v
	}
	snapshot.AgentFailures = make(map[string]int64, len(t.metrics.AgentFailures))
	for k, v := range t.metrics.AgentFailures {
		snapshot.AgentFailures[k] = v
	}
	return snapshot
}

// Handler exposes the prometheus registry for the /metrics route.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
