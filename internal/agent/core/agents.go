package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// stage is one step of an agent's fixed pipeline. Every stage before the
// last is a pure function of BusinessContext/BaselineMetrics; the last
// stage calls the generative provider. progress is the checkpoint value
// reported once the stage returns.
type stage struct {
	name     string
	progress int
	run      func(ctx context.Context, a *analysisAgent, res *AgentResult) error
}

// analysisAgent runs one variant's staged pipeline. The variant files
// (technical.go, content.go, ...) supply the stages and the shared
// machinery here handles progress, failure containment and insight caps.
type analysisAgent struct {
	agentType AgentType
	cfg       *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	extractor *InsightExtractor

	business BusinessContext
	baseline BaselineMetrics
	sink     ProgressSink

	stages []stage

	// fallbackOnLLMError controls whether a failed generative call
	// degrades to deterministic fallback insights or fails the agent.
	fallbackOnLLMError bool
	fallbackInsights   []string
}

func (a *analysisAgent) Type() AgentType { return a.agentType }

// Analyze executes the stage pipeline. It never panics outward and never
// returns a partial running result: the returned AgentResult is always
// terminal (completed or failed).
func (a *analysisAgent) Analyze(ctx context.Context) (out AgentResult) {
	res := AgentResult{
		AgentType: a.agentType,
		Status:    StatusRunning,
		Progress:  0,
		Data:      make(map[string]interface{}),
		StartTime: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("panic recovered: %v", r)
			out = a.fail(res, fmt.Errorf("internal error: %v", r))
		}
	}()

	a.report(&res, StatusRunning, 10)

	for _, st := range a.stages {
		select {
		case <-ctx.Done():
			return a.fail(res, ctx.Err())
		default:
		}
		if err := st.run(ctx, a, &res); err != nil {
			return a.fail(res, fmt.Errorf("%s: %w", st.name, err))
		}
		a.report(&res, StatusRunning, st.progress)
	}

	res.Findings = capInsights(res.Findings, a.maxInsights())
	res.Recommendations = capInsights(res.Recommendations, a.maxInsights())
	res.Status = StatusCompleted
	res.EndTime = time.Now()
	a.report(&res, StatusCompleted, 100)
	a.record(res)
	return res
}

// fail converts any internal error into a terminal failed result with
// progress reset to 0. Errors never propagate past the agent.
func (a *analysisAgent) fail(res AgentResult, err error) AgentResult {
	a.logger.Printf("agent %s failed: %v", a.agentType, err)
	res.Status = StatusFailed
	res.Error = err.Error()
	res.Progress = 0
	res.EndTime = time.Now()
	if a.sink != nil {
		a.sink(a.agentType, StatusFailed, 0)
	}
	a.record(res)
	return res
}

func (a *analysisAgent) report(res *AgentResult, status AgentStatus, progress int) {
	if progress > res.Progress {
		res.Progress = progress
	}
	res.Status = status
	if a.sink != nil {
		a.sink(a.agentType, status, res.Progress)
	}
}

func (a *analysisAgent) record(res AgentResult) {
	if a.telemetry == nil {
		return
	}
	a.telemetry.RecordAgentEvent(telemetry.AgentEvent{
		AgentType: string(res.AgentType),
		Success:   res.Status == StatusCompleted,
		Error:     res.Error,
		Duration:  res.EndTime.Sub(res.StartTime),
	})
}

func (a *analysisAgent) maxInsights() int {
	if a.cfg != nil && a.cfg.Agents.MaxInsights > 0 {
		return a.cfg.Agents.MaxInsights
	}
	return 12
}

// generateInsights is the shared final stage body: one generative call,
// extraction, then append. AI-derived insights always land after the
// deterministic ones so the cap drops them first.
func (a *analysisAgent) generateInsights(ctx context.Context, res *AgentResult, prompt string, maxTokens int) error {
	text, err := a.llm.Generate(ctx, prompt, maxTokens)
	if err != nil {
		if !a.fallbackOnLLMError {
			return fmt.Errorf("generative call: %w", err)
		}
		a.logger.Printf("generative call failed, using deterministic fallback: %v", err)
		res.Recommendations = append(res.Recommendations, a.fallbackInsights...)
		return nil
	}
	findings, recommendations := a.extractor.Extract(text)
	res.Findings = append(res.Findings, findings...)
	res.Recommendations = append(res.Recommendations, recommendations...)
	return nil
}

func capInsights(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
