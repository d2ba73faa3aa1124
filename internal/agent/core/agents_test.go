package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sitescope/sitescope/config"
)

// stubLLM is the provider used across the package tests: fixed response,
// fixed error, call counting. Safe for concurrent use.
type stubLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (s *stubLLM) Generate(_ context.Context, _ string, _ int) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const stubReport = `Findings:
- mobile pages load noticeably slower than competitors
- several category pages share the same title tag
Recommendations:
- compress hero images and lazy-load below the fold
- write unique title tags for every category page`

func testBaseline() BaselineMetrics {
	return BaselineMetrics{
		SEOScore: 60,
		TechnicalSEO: TechnicalSEO{
			Score: 55,
			Issues: []TechnicalIssue{
				{Title: "Broken sitemap", Impact: "critical"},
			},
		},
		PageSpeed: PageSpeed{Mobile: 45, Desktop: 78, LargestContentfulPaint: 3.1, CumulativeLayoutShift: 0.05},
		Keywords: []KeywordMetric{
			{Keyword: "plumber austin", Volume: 900, Difficulty: 35},
			{Keyword: "emergency plumbing", Volume: 400, Difficulty: 55},
			{Keyword: "drain cleaning", Volume: 600, Difficulty: 30},
		},
		Competitors: []CompetitorMetric{
			{Name: "Rival A", Score: 82, Ranking: 1},
			{Name: "Rival B", Score: 70, Ranking: 2},
		},
		SERPPresence: SERPPresence{
			OrganicResults: []string{"https://example.com"},
			MapsResults:    SERPFeature{Found: false},
		},
		MarketPosition: MarketPosition{Rank: 3, TotalCompetitors: 5},
	}
}

func testBusiness() BusinessContext {
	return BusinessContext{
		BusinessType: "local service",
		Industry:     "plumbing",
		Location:     "Austin, TX",
		Services:     []string{"drain cleaning", "water heater repair"},
		Keywords:     []string{"plumber austin", "drain cleaning"},
		Description:  "Family-owned plumbing company serving the Austin metro since 2004.",
	}
}

func TestAgentProgressMonotonicAndTerminal(t *testing.T) {
	var mu sync.Mutex
	var checkpoints []int
	sink := func(_ AgentType, _ AgentStatus, progress int) {
		mu.Lock()
		checkpoints = append(checkpoints, progress)
		mu.Unlock()
	}

	agent, err := NewAgent(AgentTechnical, &config.Config{}, &stubLLM{response: stubReport}, nil, testBusiness(), testBaseline(), sink)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	res := agent.Analyze(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", res.Status, res.Error)
	}
	if res.Progress != 100 {
		t.Fatalf("expected final progress 100, got %d", res.Progress)
	}
	if len(checkpoints) == 0 {
		t.Fatalf("expected sink checkpoints")
	}
	for i := 1; i < len(checkpoints); i++ {
		if checkpoints[i] < checkpoints[i-1] {
			t.Fatalf("progress regressed: %v", checkpoints)
		}
	}
	if checkpoints[len(checkpoints)-1] != 100 {
		t.Fatalf("expected last checkpoint 100, got %v", checkpoints)
	}
}

func TestAgentFailureContainment(t *testing.T) {
	llm := &stubLLM{err: fmt.Errorf("provider unavailable")}
	agent, err := NewAgent(AgentContent, &config.Config{}, llm, nil, testBusiness(), testBaseline(), nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	res := agent.Analyze(context.Background())

	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if res.Progress != 0 {
		t.Fatalf("expected progress reset to 0, got %d", res.Progress)
	}
	if res.Error == "" {
		t.Fatalf("expected error message on failed result")
	}
}

func TestAgentFallbackOnLLMError(t *testing.T) {
	llm := &stubLLM{err: fmt.Errorf("provider unavailable")}
	agent, err := NewAgent(AgentKeyword, &config.Config{}, llm, nil, testBusiness(), testBaseline(), nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	res := agent.Analyze(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("expected keyword agent to degrade, got %s (error: %s)", res.Status, res.Error)
	}
	found := false
	for _, r := range res.Recommendations {
		if strings.Contains(r, "long-tail") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected deterministic fallback recommendation, got %v", res.Recommendations)
	}
}

func TestAgentInsightCaps(t *testing.T) {
	var b strings.Builder
	b.WriteString("Findings:\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "- finding number %d padded well past the threshold\n", i)
	}
	cfg := &config.Config{}
	cfg.Agents.MaxInsights = 3

	agent, err := NewAgent(AgentTechnical, cfg, &stubLLM{response: b.String()}, nil, testBusiness(), testBaseline(), nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	res := agent.Analyze(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", res.Status)
	}
	if len(res.Findings) > 3 {
		t.Fatalf("expected findings capped at 3, got %d", len(res.Findings))
	}
	if len(res.Recommendations) > 3 {
		t.Fatalf("expected recommendations capped at 3, got %d", len(res.Recommendations))
	}
}

func TestAgentScoreDataKeys(t *testing.T) {
	llm := &stubLLM{response: stubReport}
	cases := []struct {
		agentType AgentType
		key       string
	}{
		{AgentTechnical, "technical_score"},
		{AgentContent, "content_score"},
		{AgentUX, "ux_score"},
		{AgentSERP, "serp_visibility_score"},
	}
	for _, tc := range cases {
		agent, err := NewAgent(tc.agentType, &config.Config{}, llm, nil, testBusiness(), testBaseline(), nil)
		if err != nil {
			t.Fatalf("NewAgent(%s): %v", tc.agentType, err)
		}
		res := agent.Analyze(context.Background())
		if res.Status != StatusCompleted {
			t.Fatalf("%s: expected completed, got %s (error: %s)", tc.agentType, res.Status, res.Error)
		}
		score, ok := asInt(res.Data[tc.key])
		if !ok {
			t.Fatalf("%s: missing data key %q", tc.agentType, tc.key)
		}
		if score < 0 || score > 100 {
			t.Fatalf("%s: score %d out of range", tc.agentType, score)
		}
	}
}
