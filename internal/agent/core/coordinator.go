package core

import (
	"context"
	"log"
	"math"
	"sync"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// Coordinator fans out the six analysis agents concurrently and joins on
// all of them. Agents contain their own failures, so the barrier only
// waits for settlement and never short-circuits.
type Coordinator struct {
	cfg       *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewCoordinator creates a coordinator bound to one provider instance.
func NewCoordinator(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[COORD] ", log.LstdFlags),
	}
}

// RunAll constructs one agent per type, runs them concurrently and
// returns all six results in the fixed AllAgentTypes order. The sink, if
// non-nil, observes per-agent progress while agents run.
func (c *Coordinator) RunAll(ctx context.Context, business BusinessContext, baseline BaselineMetrics, sink ProgressSink) []AgentResult {
	types := AllAgentTypes()
	results := make([]AgentResult, len(types))

	var wg sync.WaitGroup
	for i, t := range types {
		agent, err := NewAgent(t, c.cfg, c.llm, c.telemetry, business, baseline, sink)
		if err != nil {
			// Unknown tags cannot happen for the closed set, but a
			// constructor failure must still settle the slot.
			results[i] = AgentResult{AgentType: t, Status: StatusFailed, Error: err.Error()}
			continue
		}
		wg.Add(1)
		go func(idx int, a Agent) {
			defer wg.Done()
			results[idx] = a.Analyze(ctx)
		}(i, agent)
	}
	wg.Wait()

	c.logger.Printf("all %d agents settled (overall status: %s)", len(types), AggregateStatus(results))
	return results
}

// AggregateProgress is the arithmetic mean of all per-agent progress
// values, rounded to the nearest integer. With no results it is 0.
func AggregateProgress(results []AgentResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Progress
	}
	return int(math.Round(float64(sum) / float64(len(results))))
}

// AggregateStatus derives the run-level status: any failed agent marks
// the whole run failed; otherwise any unfinished agent means running;
// otherwise completed. Callers wanting partial credit must inspect the
// individual results.
func AggregateStatus(results []AgentResult) AgentStatus {
	if len(results) == 0 {
		return StatusRunning
	}
	anyUnfinished := false
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			return StatusFailed
		case StatusPending, StatusRunning:
			anyUnfinished = true
		}
	}
	if anyUnfinished {
		return StatusRunning
	}
	return StatusCompleted
}
