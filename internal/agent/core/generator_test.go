package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sitescope/sitescope/config"
)

func testGenerator(llm LLMProvider) *ActionPlanGenerator {
	return NewActionPlanGenerator(&config.Config{}, llm)
}

func TestCoerceActionItemDefaults(t *testing.T) {
	item := coerceActionItem(map[string]interface{}{
		"title":     "Fix redirects",
		"priority":  "urgent",    // not in enum
		"impact":    "enormous",  // not in enum
		"category":  "marketing", // not in enum
		"timeframe": "someday",   // not in enum
		"steps":     "not an array",
	}, 1)

	if item.Priority != "medium" {
		t.Fatalf("expected priority coerced to medium, got %q", item.Priority)
	}
	if item.Impact != "medium" {
		t.Fatalf("expected impact coerced to medium, got %q", item.Impact)
	}
	if item.Category != "technical" {
		t.Fatalf("expected category coerced to technical, got %q", item.Category)
	}
	if item.Timeframe != "this_week" {
		t.Fatalf("expected timeframe coerced to this_week, got %q", item.Timeframe)
	}
	if len(item.Steps) != 1 || item.Steps[0] != defaultStep {
		t.Fatalf("expected default step, got %v", item.Steps)
	}
	if item.ID != "action-1" {
		t.Fatalf("expected id action-1, got %q", item.ID)
	}
}

func TestActionItemsFallbackWhenProviderFails(t *testing.T) {
	g := testGenerator(&stubLLM{err: fmt.Errorf("provider down")})
	items := g.actionItems(context.Background(), testBusiness(), nil)

	if len(items) != 5 {
		t.Fatalf("expected the 5 fallback items, got %d", len(items))
	}
	seen := make(map[string]bool)
	for _, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
		if coerceEnum(it.Priority, priorityEnum, "") == "" {
			t.Fatalf("fallback item %s has invalid priority %q", it.ID, it.Priority)
		}
		if coerceEnum(it.Timeframe, timeframeEnum, "") == "" {
			t.Fatalf("fallback item %s has invalid timeframe %q", it.ID, it.Timeframe)
		}
		if len(it.Steps) == 0 {
			t.Fatalf("fallback item %s has no steps", it.ID)
		}
	}
}

func TestActionItemsParsesProviderJSON(t *testing.T) {
	g := testGenerator(&stubLLM{response: `Here is the plan:
[{"title": "Compress images", "priority": "high", "impact": "high", "effort": "low",
  "category": "technical", "timeframe": "immediate",
  "steps": ["Audit image sizes", "Convert to WebP"], "expected_improvement": "Faster LCP"}]`})
	items := g.actionItems(context.Background(), testBusiness(), nil)

	if len(items) != 1 {
		t.Fatalf("expected 1 parsed item, got %d", len(items))
	}
	if items[0].Title != "Compress images" || items[0].Priority != "high" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if len(items[0].Steps) != 2 {
		t.Fatalf("expected parsed steps kept, got %v", items[0].Steps)
	}
}

func TestOverallScoreSuccessiveAveraging(t *testing.T) {
	g := testGenerator(&stubLLM{})
	baseline := BaselineMetrics{SEOScore: 60}
	results := []AgentResult{
		{AgentType: AgentTechnical, Status: StatusCompleted, Data: map[string]interface{}{"technical_score": 80}},
		{AgentType: AgentContent, Status: StatusCompleted, Data: map[string]interface{}{"content_score": 70}},
		{AgentType: AgentUX, Status: StatusFailed, Data: map[string]interface{}{"ux_score": 10}},
	}
	// (60+80)/2 = 70, then (70+70)/2 = 70; the failed UX agent is skipped.
	if got := g.overallScore(baseline, results); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
}

func TestOverallScoreBaselineOnly(t *testing.T) {
	g := testGenerator(&stubLLM{})
	if got := g.overallScore(BaselineMetrics{SEOScore: 60}, nil); got != 60 {
		t.Fatalf("expected baseline passthrough 60, got %d", got)
	}
}

func TestPotentialImprovementCappedAt95(t *testing.T) {
	g := testGenerator(&stubLLM{})
	baseline := BaselineMetrics{
		SEOScore: 60,
		TechnicalSEO: TechnicalSEO{Issues: []TechnicalIssue{
			{Impact: "critical"}, {Impact: "critical"}, {Impact: "high"},
		}},
		Keywords:  []KeywordMetric{{Keyword: "a"}, {Keyword: "b"}, {Keyword: "c"}},
		PageSpeed: PageSpeed{Mobile: 0},
	}
	// 60 + 2*5 + 15 + 20 = 105, capped at 95.
	if got := g.potentialImprovement(60, baseline); got != 95 {
		t.Fatalf("expected cap at 95, got %d", got)
	}
}

func TestPotentialImprovementNeverBelowOverall(t *testing.T) {
	g := testGenerator(&stubLLM{})
	baseline := BaselineMetrics{
		Keywords:  make([]KeywordMetric, 20),
		PageSpeed: PageSpeed{Mobile: 90},
	}
	if got := g.potentialImprovement(98, baseline); got != 98 {
		t.Fatalf("expected floor at overall 98, got %d", got)
	}
}

func TestQuickWinsFilterAndCap(t *testing.T) {
	g := testGenerator(&stubLLM{})
	var items []ActionItem
	for i := 0; i < 8; i++ {
		items = append(items, ActionItem{
			Title: fmt.Sprintf("win %d", i), Timeframe: "immediate", Effort: "low", Impact: "high",
		})
	}
	items = append(items,
		ActionItem{Title: "too much effort", Timeframe: "immediate", Effort: "high", Impact: "high"},
		ActionItem{Title: "too late", Timeframe: "next_quarter", Effort: "low", Impact: "high"},
		ActionItem{Title: "too little impact", Timeframe: "this_week", Effort: "low", Impact: "low"},
	)

	wins := g.quickWins(items)
	if len(wins) != 5 {
		t.Fatalf("expected quick wins capped at 5, got %d", len(wins))
	}
	for _, w := range wins {
		if w == "too much effort" || w == "too late" || w == "too little impact" {
			t.Fatalf("filter admitted %q", w)
		}
	}
}

func TestLongTermGoalsFilter(t *testing.T) {
	g := testGenerator(&stubLLM{})
	items := []ActionItem{
		{Title: "quarterly push", Timeframe: "next_quarter", Impact: "high"},
		{Title: "monthly push", Timeframe: "this_month", Impact: "high"},
		{Title: "low impact", Timeframe: "next_quarter", Impact: "medium"},
		{Title: "near term", Timeframe: "immediate", Impact: "high"},
	}
	goals := g.longTermGoals(items)
	if len(goals) != 2 || goals[0] != "quarterly push" || goals[1] != "monthly push" {
		t.Fatalf("unexpected long-term goals: %v", goals)
	}
}

func TestTimelineCounts(t *testing.T) {
	g := testGenerator(&stubLLM{})
	items := []ActionItem{
		{Timeframe: "immediate"}, {Timeframe: "immediate"}, {Timeframe: "this_month"},
	}
	got := g.timeline(items)
	want := "Actions scheduled: 2 immediate, 1 this month"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if g.timeline(nil) != "Phased rollout over the next 90 days" {
		t.Fatalf("unexpected empty-plan timeline: %q", g.timeline(nil))
	}
}

func TestProgressTrackingMilestones(t *testing.T) {
	g := testGenerator(&stubLLM{})
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []ActionItem{
		{ID: "action-1", Timeframe: "immediate"},
		{ID: "action-2", Timeframe: "this_week"},
		{ID: "action-3", Timeframe: "next_quarter"},
	}
	tracking := g.progressTracking(now, items, testBaseline())

	if len(tracking.Milestones) != 4 {
		t.Fatalf("expected 4 milestones, got %d", len(tracking.Milestones))
	}
	first := tracking.Milestones[0]
	if !first.DueDate.Equal(now.AddDate(0, 0, 7)) {
		t.Fatalf("expected first milestone at +7d, got %v", first.DueDate)
	}
	if len(first.ActionItemIDs) != 1 || first.ActionItemIDs[0] != "action-1" {
		t.Fatalf("expected immediate item in first milestone, got %v", first.ActionItemIDs)
	}
	last := tracking.Milestones[3]
	if len(last.ActionItemIDs) != 1 || last.ActionItemIDs[0] != "action-3" {
		t.Fatalf("expected quarterly item in last milestone, got %v", last.ActionItemIDs)
	}
	for _, m := range tracking.Milestones {
		if m.Status != "not_started" {
			t.Fatalf("expected milestone %q not_started, got %q", m.Title, m.Status)
		}
	}
	if len(tracking.KPIs) != 5 {
		t.Fatalf("expected 5 KPI rows, got %d", len(tracking.KPIs))
	}
	for _, k := range tracking.KPIs {
		if k.Target < k.Current {
			t.Fatalf("KPI %q target %d below current %d", k.Metric, k.Target, k.Current)
		}
	}
}

func TestGenerateCompleteWithFailingProvider(t *testing.T) {
	g := testGenerator(&stubLLM{err: fmt.Errorf("provider down")})
	plan, ci, strategy, tracking := g.Generate(context.Background(), testBusiness(), testBaseline(), nil)

	if plan == nil || len(plan.Items) != 5 {
		t.Fatalf("expected fallback plan with 5 items, got %+v", plan)
	}
	if plan.Summary == "" {
		t.Fatalf("expected fallback summary")
	}
	if plan.PotentialImprovement < plan.OverallScore || plan.PotentialImprovement > 95 {
		t.Fatalf("improvement %d out of bounds for overall %d", plan.PotentialImprovement, plan.OverallScore)
	}
	if ci == nil || ci.MarketPosition == "" {
		t.Fatalf("expected fallback competitive intelligence, got %+v", ci)
	}
	if strategy == nil || len(strategy.TopicClusters) == 0 {
		t.Fatalf("expected fallback content strategy, got %+v", strategy)
	}
	if tracking == nil || len(tracking.Milestones) != 4 {
		t.Fatalf("expected deterministic tracking, got %+v", tracking)
	}
}
