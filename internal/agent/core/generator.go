package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sitescope/sitescope/config"
)

// Enum vocabularies for ActionItem fields. Values outside these sets are
// coerced to the documented defaults rather than rejecting the item.
var (
	priorityEnum  = []string{"critical", "high", "medium", "low"}
	impactEnum    = []string{"high", "medium", "low"}
	effortEnum    = []string{"high", "medium", "low"}
	categoryEnum  = []string{"technical", "content", "keywords", "competitors", "user_experience", "local_seo"}
	timeframeEnum = []string{"immediate", "this_week", "this_month", "next_quarter"}
)

const defaultStep = "Review and implement this action"

// ActionPlanGenerator reduces the settled agent results plus baseline
// metrics into the four run sub-reports. Every generative call has a
// deterministic fallback: the generator always produces complete,
// well-typed output.
type ActionPlanGenerator struct {
	cfg    *config.Config
	llm    LLMProvider
	logger *log.Logger
}

// NewActionPlanGenerator creates a generator bound to one provider.
func NewActionPlanGenerator(cfg *config.Config, llm LLMProvider) *ActionPlanGenerator {
	return &ActionPlanGenerator{
		cfg:    cfg,
		llm:    llm,
		logger: log.New(log.Writer(), "[PLANGEN] ", log.LstdFlags),
	}
}

// Generate produces all four sub-reports. The generative sub-reports
// (items, summary, competitive intelligence, content strategy) have no
// data dependency on each other and run concurrently.
func (g *ActionPlanGenerator) Generate(ctx context.Context, business BusinessContext, baseline BaselineMetrics, results []AgentResult) (*ActionPlan, *CompetitiveIntelligence, *ContentStrategy, *ProgressTracking) {
	var (
		wg       sync.WaitGroup
		items    []ActionItem
		summary  string
		ci       *CompetitiveIntelligence
		strategy *ContentStrategy
	)

	overall := g.overallScore(baseline, results)
	improvement := g.potentialImprovement(overall, baseline)

	wg.Add(4)
	go func() { defer wg.Done(); items = g.actionItems(ctx, business, results) }()
	go func() { defer wg.Done(); summary = g.summary(ctx, business, overall, improvement) }()
	go func() { defer wg.Done(); ci = g.competitiveIntelligence(ctx, business, baseline) }()
	go func() { defer wg.Done(); strategy = g.contentStrategy(ctx, business, baseline) }()
	wg.Wait()

	plan := &ActionPlan{
		Summary:              summary,
		OverallScore:         overall,
		PotentialImprovement: improvement,
		Timeline:             g.timeline(items),
		Items:                items,
		QuickWins:            g.quickWins(items),
		LongTermGoals:        g.longTermGoals(items),
	}
	tracking := g.progressTracking(time.Now(), items, baseline)
	return plan, ci, strategy, tracking
}

// actionItems asks the provider for 8-12 structured items and validates
// every field. Unparsable output yields the fixed fallback set: the plan
// is never empty.
func (g *ActionPlanGenerator) actionItems(ctx context.Context, business BusinessContext, results []AgentResult) []ActionItem {
	var findings, recommendations []string
	for _, r := range results {
		findings = append(findings, r.Findings...)
		recommendations = append(recommendations, r.Recommendations...)
	}

	prompt := fmt.Sprintf(`You are an SEO consultant building an action plan for a %s business in the %s industry.
FINDINGS:
%s
RECOMMENDATIONS:
%s
Return ONLY a strict JSON array of 8-12 action items, each:
{"title": string, "description": string, "priority": "critical|high|medium|low",
 "impact": "high|medium|low", "effort": "high|medium|low",
 "category": "technical|content|keywords|competitors|user_experience|local_seo",
 "timeframe": "immediate|this_week|this_month|next_quarter",
 "steps": [string], "tools": [string], "expected_improvement": string}`,
		business.BusinessType, business.Industry,
		bulletList(findings), bulletList(recommendations))

	out, err := g.llm.Generate(ctx, prompt, 2000)
	if err != nil {
		g.logger.Printf("action item generation failed, using fallback set: %v", err)
		return fallbackActionItems()
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal([]byte(extractFirstJSONArray(out)), &raw); err != nil || len(raw) == 0 {
		g.logger.Printf("action item response unparsable, using fallback set")
		return fallbackActionItems()
	}

	items := make([]ActionItem, 0, len(raw))
	for i, m := range raw {
		items = append(items, coerceActionItem(m, i+1))
	}
	return items
}

// coerceActionItem validates one parsed item, coercing out-of-enum
// fields to their documented defaults.
func coerceActionItem(m map[string]interface{}, n int) ActionItem {
	item := ActionItem{
		ID:                  fmt.Sprintf("action-%d", n),
		Title:               asString(m["title"], fmt.Sprintf("Action item %d", n)),
		Description:         asString(m["description"], ""),
		Priority:            coerceEnum(asString(m["priority"], ""), priorityEnum, "medium"),
		Impact:              coerceEnum(asString(m["impact"], ""), impactEnum, "medium"),
		Effort:              coerceEnum(asString(m["effort"], ""), effortEnum, "medium"),
		Category:            coerceEnum(asString(m["category"], ""), categoryEnum, "technical"),
		Timeframe:           coerceEnum(asString(m["timeframe"], ""), timeframeEnum, "this_week"),
		Steps:               asStringSlice(m["steps"]),
		Tools:               asStringSlice(m["tools"]),
		ExpectedImprovement: asString(m["expected_improvement"], "Improved search visibility"),
		Dependencies:        asStringSlice(m["dependencies"]),
	}
	if len(item.Steps) == 0 {
		item.Steps = []string{defaultStep}
	}
	return item
}

// fallbackActionItems is the hand-authored plan used whenever the
// generative call fails or returns garbage.
func fallbackActionItems() []ActionItem {
	return []ActionItem{
		{
			ID: "action-1", Title: "Fix critical technical SEO issues",
			Description: "Resolve crawl errors, broken links and redirect chains surfaced by the technical audit.",
			Priority:    "critical", Impact: "high", Effort: "medium", Category: "technical", Timeframe: "immediate",
			Steps:               []string{"Crawl the site for errors", "Fix broken internal links", "Collapse redirect chains"},
			Tools:               []string{"Screaming Frog", "Search Console"},
			ExpectedImprovement: "Faster indexing and fewer crawl errors",
		},
		{
			ID: "action-2", Title: "Improve mobile page speed",
			Description: "Compress images, defer non-critical scripts and enable caching for mobile visitors.",
			Priority:    "high", Impact: "high", Effort: "medium", Category: "technical", Timeframe: "this_week",
			Steps:               []string{"Compress hero images", "Defer third-party scripts", "Enable browser caching"},
			Tools:               []string{"PageSpeed Insights"},
			ExpectedImprovement: "Higher mobile usability and rankings",
		},
		{
			ID: "action-3", Title: "Publish service landing pages",
			Description: "Create a dedicated, keyword-targeted page for each core service.",
			Priority:    "high", Impact: "high", Effort: "high", Category: "content", Timeframe: "this_month",
			Steps:               []string{"Outline one page per service", "Write 800+ words of original copy", "Interlink from the homepage"},
			ExpectedImprovement: "Rankings for commercial-intent terms",
		},
		{
			ID: "action-4", Title: "Complete the business profile",
			Description: "Claim and fully populate the Google Business Profile with categories, photos and hours.",
			Priority:    "medium", Impact: "medium", Effort: "low", Category: "local_seo", Timeframe: "this_week",
			Steps:               []string{"Claim the listing", "Add photos and categories", "Request reviews from recent customers"},
			ExpectedImprovement: "Maps visibility for local queries",
		},
		{
			ID: "action-5", Title: "Build a keyword content calendar",
			Description: "Plan a month of content around high-opportunity keywords identified in the analysis.",
			Priority:    "medium", Impact: "medium", Effort: "medium", Category: "keywords", Timeframe: "next_quarter",
			Steps:               []string{"Pick 8 target keywords", "Schedule weekly posts", "Track rankings monthly"},
			ExpectedImprovement: "Broader organic keyword coverage",
		},
	}
}

// overallScore starts from the baseline SEO score and successively
// averages in each completed agent's named sub-score. Each sub-score
// pulls the running value 50% toward itself, so the fixed technical →
// content → user_experience order is part of the observable behavior.
func (g *ActionPlanGenerator) overallScore(baseline BaselineMetrics, results []AgentResult) int {
	score := float64(baseline.SEOScore)
	for _, key := range []struct {
		agent AgentType
		field string
	}{
		{AgentTechnical, "technical_score"},
		{AgentContent, "content_score"},
		{AgentUX, "ux_score"},
	} {
		for _, r := range results {
			if r.AgentType != key.agent || r.Status != StatusCompleted {
				continue
			}
			if sub, ok := asInt(r.Data[key.field]); ok {
				score = (score + float64(sub)) / 2
			}
		}
	}
	return clamp(int(score+0.5), 0, 100)
}

// potentialImprovement adds heuristic headroom deltas to the overall
// score: +5 per critical technical issue, +15 for thin keyword coverage,
// +20 for poor mobile optimization. Capped at 95, never below overall.
func (g *ActionPlanGenerator) potentialImprovement(overall int, baseline BaselineMetrics) int {
	delta := 0
	for _, issue := range baseline.TechnicalSEO.Issues {
		if issue.Impact == "critical" {
			delta += 5
		}
	}
	if len(baseline.Keywords) < 10 {
		delta += 15
	}
	if baseline.PageSpeed.Mobile < 70 {
		delta += 20
	}
	improvement := overall + delta
	if improvement > 95 {
		improvement = 95
	}
	if improvement < overall {
		improvement = overall
	}
	return improvement
}

// timeline renders the per-timeframe item counts in fixed order.
func (g *ActionPlanGenerator) timeline(items []ActionItem) string {
	labels := []struct{ key, label string }{
		{"immediate", "immediate"},
		{"this_week", "this week"},
		{"this_month", "this month"},
		{"next_quarter", "next quarter"},
	}
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.Timeframe]++
	}
	var parts []string
	for _, l := range labels {
		if c := counts[l.key]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, l.label))
		}
	}
	if len(parts) == 0 {
		return "Phased rollout over the next 90 days"
	}
	return "Actions scheduled: " + strings.Join(parts, ", ")
}

// quickWins returns up to 5 titles of near-term, low-effort items with at
// least medium impact, preserving plan order.
func (g *ActionPlanGenerator) quickWins(items []ActionItem) []string {
	var wins []string
	for _, it := range items {
		if len(wins) == 5 {
			break
		}
		nearTerm := it.Timeframe == "immediate" || it.Timeframe == "this_week"
		if nearTerm && it.Effort == "low" && it.Impact != "low" {
			wins = append(wins, it.Title)
		}
	}
	return wins
}

// longTermGoals returns up to 5 titles of later, high-impact items.
func (g *ActionPlanGenerator) longTermGoals(items []ActionItem) []string {
	var goals []string
	for _, it := range items {
		if len(goals) == 5 {
			break
		}
		later := it.Timeframe == "this_month" || it.Timeframe == "next_quarter"
		if later && it.Impact == "high" {
			goals = append(goals, it.Title)
		}
	}
	return goals
}

func (g *ActionPlanGenerator) summary(ctx context.Context, business BusinessContext, overall, improvement int) string {
	prompt := fmt.Sprintf(`Write a two-sentence executive summary of an SEO improvement plan for a %s business
in the %s industry. Current score: %d/100, achievable score: %d/100. Plain prose, no lists.`,
		business.BusinessType, business.Industry, overall, improvement)
	out, err := g.llm.Generate(ctx, prompt, 200)
	if err != nil || strings.TrimSpace(out) == "" {
		return fmt.Sprintf("The property scores %d/100 today with a realistic path to %d/100. The plan prioritizes technical fixes first, then content and visibility work.", overall, improvement)
	}
	return strings.TrimSpace(out)
}

// competitiveIntelligence asks for a small JSON object; on any parse
// failure it falls back to a context-derived default, never empty.
func (g *ActionPlanGenerator) competitiveIntelligence(ctx context.Context, business BusinessContext, baseline BaselineMetrics) *CompetitiveIntelligence {
	prompt := fmt.Sprintf(`You are a competitive analyst for a %s business in the %s industry (%s).
The property ranks %d of %d competitors with an SEO score of %d.
Return ONLY strict JSON:
{"market_position": string, "competitive_advantages": [string], "competitive_gaps": [string],
 "opportunity_areas": [string],
 "benchmark_scores": {"content": 0-100, "technical": 0-100, "authority": 0-100, "user_experience": 0-100}}`,
		business.BusinessType, business.Industry, business.Location,
		baseline.MarketPosition.Rank, baseline.MarketPosition.TotalCompetitors, baseline.SEOScore)

	out, err := g.llm.Generate(ctx, prompt, 700)
	if err == nil {
		var parsed CompetitiveIntelligence
		if e := json.Unmarshal([]byte(extractFirstJSON(out)), &parsed); e == nil && parsed.MarketPosition != "" {
			return &parsed
		}
	}
	return fallbackCompetitiveIntelligence(business, baseline)
}

func fallbackCompetitiveIntelligence(business BusinessContext, baseline BaselineMetrics) *CompetitiveIntelligence {
	pos := baseline.MarketPosition
	position := "Position unknown in an unmeasured market"
	if pos.TotalCompetitors > 0 {
		position = fmt.Sprintf("Ranked %d of %d in the local %s market", pos.Rank, pos.TotalCompetitors, business.Industry)
	}
	authority := 50
	if pos.TotalCompetitors > 0 {
		authority = clamp(100-(pos.Rank-1)*100/pos.TotalCompetitors, 0, 100)
	}
	return &CompetitiveIntelligence{
		MarketPosition:        position,
		CompetitiveAdvantages: []string{"Established local presence", "Focused service offering"},
		CompetitiveGaps:       []string{"Lower search visibility than leading competitors"},
		OpportunityAreas:      []string{"Local search features", "Long-tail keyword coverage"},
		BenchmarkScores: BenchmarkScores{
			Content:        clamp(baseline.SEOScore, 0, 100),
			Technical:      clamp(baseline.TechnicalSEO.Score, 0, 100),
			Authority:      authority,
			UserExperience: clamp((baseline.PageSpeed.Mobile+baseline.PageSpeed.Desktop)/2, 0, 100),
		},
	}
}

// contentStrategy mirrors competitiveIntelligence: generative first,
// deterministic context-derived fallback second.
func (g *ActionPlanGenerator) contentStrategy(ctx context.Context, business BusinessContext, baseline BaselineMetrics) *ContentStrategy {
	prompt := fmt.Sprintf(`You are a content strategist for a %s business (%s industry).
Target keywords: %s. Products: %s. Services: %s.
Return ONLY strict JSON:
{"content_gaps": [string],
 "topic_clusters": [{"topic": string, "keywords": [string], "priority": "high|medium|low"}],
 "content_calendar": [{"week": number, "content_type": string, "topic": string, "target_keyword": string}]}`,
		business.BusinessType, business.Industry,
		joinOrNone(business.Keywords), joinOrNone(business.Products), joinOrNone(business.Services))

	out, err := g.llm.Generate(ctx, prompt, 900)
	if err == nil {
		var parsed ContentStrategy
		if e := json.Unmarshal([]byte(extractFirstJSON(out)), &parsed); e == nil && len(parsed.TopicClusters) > 0 {
			for i := range parsed.TopicClusters {
				parsed.TopicClusters[i].Priority = coerceEnum(parsed.TopicClusters[i].Priority, impactEnum, "medium")
			}
			return &parsed
		}
	}
	return fallbackContentStrategy(business)
}

func fallbackContentStrategy(business BusinessContext) *ContentStrategy {
	keywords := business.Keywords
	if len(keywords) == 0 {
		keywords = []string{business.Industry}
	}
	strategy := &ContentStrategy{}
	types := []string{"blog post", "guide", "case study", "FAQ page"}
	for i, kw := range keywords {
		if i >= 4 {
			break
		}
		strategy.ContentGaps = append(strategy.ContentGaps, fmt.Sprintf("No dedicated page targets \"%s\"", kw))
		strategy.TopicClusters = append(strategy.TopicClusters, TopicCluster{
			Topic:    kw,
			Keywords: []string{kw, kw + " near me", "best " + kw},
			Priority: "high",
		})
		strategy.ContentCalendar = append(strategy.ContentCalendar, CalendarEntry{
			Week:          i + 1,
			ContentType:   types[i%len(types)],
			Topic:         kw,
			TargetKeyword: kw,
		})
	}
	return strategy
}

// progressTracking is purely deterministic: four fixed milestones and
// five KPI rows computed from the baseline with capped targets.
func (g *ActionPlanGenerator) progressTracking(now time.Time, items []ActionItem, baseline BaselineMetrics) *ProgressTracking {
	itemIDs := func(timeframes ...string) []string {
		var ids []string
		for _, it := range items {
			for _, tf := range timeframes {
				if it.Timeframe == tf {
					ids = append(ids, it.ID)
					break
				}
			}
		}
		return ids
	}

	milestones := []Milestone{
		{Title: "Immediate fixes complete", DueDate: now.AddDate(0, 0, 7), Status: "not_started", ActionItemIDs: itemIDs("immediate")},
		{Title: "Quick wins shipped", DueDate: now.AddDate(0, 0, 21), Status: "not_started", ActionItemIDs: itemIDs("this_week")},
		{Title: "Monthly targets met", DueDate: now.AddDate(0, 0, 30), Status: "not_started", ActionItemIDs: itemIDs("this_month")},
		{Title: "Quarterly goals achieved", DueDate: now.AddDate(0, 0, 90), Status: "not_started", ActionItemIDs: itemIDs("next_quarter")},
	}

	serpFeatures := 0
	for _, found := range []bool{
		baseline.SERPPresence.MapsResults.Found,
		baseline.SERPPresence.FeaturedSnippets.Found,
		baseline.SERPPresence.KnowledgePanel.Found,
		baseline.SERPPresence.NewsResults.Found,
		baseline.SERPPresence.VideoResults.Found,
		baseline.SERPPresence.ImagesResults.Found,
	} {
		if found {
			serpFeatures++
		}
	}

	kpis := []KPI{
		{Metric: "SEO score", Current: baseline.SEOScore, Target: clamp(baseline.SEOScore+15, 0, 95), Timeframe: "90 days"},
		{Metric: "Ranking keywords", Current: len(baseline.Keywords), Target: clamp(len(baseline.Keywords)+10, 0, 50), Timeframe: "90 days"},
		{Metric: "Mobile speed score", Current: baseline.PageSpeed.Mobile, Target: clamp(baseline.PageSpeed.Mobile+20, 0, 90), Timeframe: "30 days"},
		{Metric: "Technical score", Current: baseline.TechnicalSEO.Score, Target: clamp(baseline.TechnicalSEO.Score+10, 0, 95), Timeframe: "30 days"},
		{Metric: "SERP features", Current: serpFeatures, Target: clamp(serpFeatures+2, 0, 6), Timeframe: "90 days"},
	}

	return &ProgressTracking{Milestones: milestones, KPIs: kpis}
}

// coerceEnum returns v when it belongs to allowed, the default otherwise.
func coerceEnum(v string, allowed []string, def string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

func asString(v interface{}, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

func asStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
