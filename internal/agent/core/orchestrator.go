package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// Orchestrator owns the run lifecycle: it starts analysis runs, tracks
// their in-flight state for pollers and retains terminal runs in memory.
// Runs are disposable; nothing is persisted across process restarts.
type Orchestrator struct {
	cfg       *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	mu   sync.RWMutex
	runs map[string]*ComprehensiveAnalysis

	// semaphore bounding concurrent runs; nil means unbounded.
	slots chan struct{}
}

// NewOrchestrator builds the orchestrator plus its provider from config.
func NewOrchestrator(cfg *config.Config, tele *telemetry.Telemetry) (*Orchestrator, error) {
	llm, err := NewLLMProvider(cfg.LLM, tele)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return NewOrchestratorWithProvider(cfg, llm, tele), nil
}

// NewOrchestratorWithProvider injects the provider directly. Tests use
// this to substitute stub providers.
func NewOrchestratorWithProvider(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		runs:      make(map[string]*ComprehensiveAnalysis),
	}
	if cfg != nil && cfg.Agents.MaxConcurrentRuns > 0 {
		o.slots = make(chan struct{}, cfg.Agents.MaxConcurrentRuns)
	}
	return o
}

// StartAnalysis registers a new run and executes it asynchronously.
// The returned ID is immediately pollable via GetAnalysis.
func (o *Orchestrator) StartAnalysis(ctx context.Context, business BusinessContext, baseline BaselineMetrics) string {
	id := uuid.New().String()
	run := &ComprehensiveAnalysis{
		ID:            id,
		Status:        StatusPending,
		BasicAnalysis: baseline,
		AgentResults:  pendingResults(),
		StartedAt:     time.Now(),
	}
	o.mu.Lock()
	o.runs[id] = run
	o.mu.Unlock()

	// The caller's context is usually an HTTP request context that dies
	// when the handler returns; the run must outlive it.
	go o.execute(context.WithoutCancel(ctx), id, business, baseline)
	return id
}

// RunAnalysis executes one run synchronously and returns the terminal
// aggregate. Used by the one-shot CLI path.
func (o *Orchestrator) RunAnalysis(ctx context.Context, business BusinessContext, baseline BaselineMetrics) *ComprehensiveAnalysis {
	id := uuid.New().String()
	run := &ComprehensiveAnalysis{
		ID:            id,
		Status:        StatusPending,
		BasicAnalysis: baseline,
		AgentResults:  pendingResults(),
		StartedAt:     time.Now(),
	}
	o.mu.Lock()
	o.runs[id] = run
	o.mu.Unlock()

	o.execute(ctx, id, business, baseline)
	analysis, _ := o.GetAnalysis(id)
	return analysis
}

func (o *Orchestrator) execute(ctx context.Context, id string, business BusinessContext, baseline BaselineMetrics) {
	if o.slots != nil {
		o.slots <- struct{}{}
		defer func() { <-o.slots }()
	}

	start := time.Now()
	o.setRunStatus(id, StatusRunning, 0)
	o.logger.Printf("run %s started", id)

	sink := func(agentType AgentType, status AgentStatus, progress int) {
		o.updateAgentProgress(id, agentType, status, progress)
	}

	coordinator := NewCoordinator(o.cfg, o.llm, o.telemetry)
	results := coordinator.RunAll(ctx, business, baseline, sink)

	generator := NewActionPlanGenerator(o.cfg, o.llm)
	plan, ci, strategy, tracking := generator.Generate(ctx, business, baseline, results)

	status := AggregateStatus(results)
	o.mu.Lock()
	if run, ok := o.runs[id]; ok {
		run.AgentResults = results
		run.ActionPlan = plan
		run.CompetitiveIntelligence = ci
		run.ContentStrategy = strategy
		run.ProgressTracking = tracking
		run.Status = status
		run.Progress = AggregateProgress(results)
		run.CompletedAt = time.Now()
	}
	o.mu.Unlock()

	if o.telemetry != nil {
		o.telemetry.RecordRunEvent(telemetry.RunEvent{
			RunID:    id,
			Success:  status == StatusCompleted,
			Duration: time.Since(start),
		})
	}
	o.logger.Printf("run %s finished with status %s in %s", id, status, time.Since(start).Round(time.Millisecond))
}

// GetAnalysis returns a deep-enough copy of the run for safe concurrent
// reads: the top level is copied, sub-reports are read-only once set.
func (o *Orchestrator) GetAnalysis(id string) (*ComprehensiveAnalysis, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	run, ok := o.runs[id]
	if !ok {
		return nil, false
	}
	cp := *run
	cp.AgentResults = make([]AgentResult, len(run.AgentResults))
	copy(cp.AgentResults, run.AgentResults)
	return &cp, true
}

// ListAnalyses returns run IDs newest-first.
func (o *Orchestrator) ListAnalyses() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.runs))
	for id := range o.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return o.runs[ids[i]].StartedAt.After(o.runs[ids[j]].StartedAt)
	})
	return ids
}

func (o *Orchestrator) setRunStatus(id string, status AgentStatus, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if run, ok := o.runs[id]; ok && !run.Status.Terminal() {
		run.Status = status
		run.Progress = progress
	}
}

// updateAgentProgress applies one sink checkpoint to the stored run so
// pollers observe per-agent liveness before the barrier joins.
func (o *Orchestrator) updateAgentProgress(id string, agentType AgentType, status AgentStatus, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[id]
	if !ok || run.Status.Terminal() {
		return
	}
	for i := range run.AgentResults {
		if run.AgentResults[i].AgentType == agentType {
			run.AgentResults[i].Status = status
			run.AgentResults[i].Progress = progress
			break
		}
	}
	run.Progress = AggregateProgress(run.AgentResults)
}

func pendingResults() []AgentResult {
	types := AllAgentTypes()
	results := make([]AgentResult, len(types))
	for i, t := range types {
		results[i] = AgentResult{AgentType: t, Status: StatusPending}
	}
	return results
}
