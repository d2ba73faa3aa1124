package core

import (
	"context"
	"time"
)

// AgentType identifies one analysis facet. The set is closed: every run
// executes exactly one agent per type.
type AgentType string

const (
	AgentTechnical  AgentType = "technical"
	AgentContent    AgentType = "content"
	AgentCompetitor AgentType = "competitor"
	AgentKeyword    AgentType = "keyword"
	AgentSERP       AgentType = "serp"
	AgentUX         AgentType = "user_experience"
)

// AllAgentTypes returns the fixed execution set in deterministic order.
func AllAgentTypes() []AgentType {
	return []AgentType{AgentTechnical, AgentContent, AgentCompetitor, AgentKeyword, AgentSERP, AgentUX}
}

// AgentStatus is the one-way lifecycle of an agent or a whole run.
// pending -> running -> completed | failed; failed and completed are terminal.
type AgentStatus string

const (
	StatusPending   AgentStatus = "pending"
	StatusRunning   AgentStatus = "running"
	StatusCompleted AgentStatus = "completed"
	StatusFailed    AgentStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s AgentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BusinessContext describes the business behind the analyzed web property.
// It is owned by the caller and read-only for the lifetime of a run.
type BusinessContext struct {
	BusinessType string   `json:"business_type"`
	Industry     string   `json:"industry"`
	Location     string   `json:"location"`
	Products     []string `json:"products"`
	Services     []string `json:"services"`
	Keywords     []string `json:"keywords"`
	Description  string   `json:"description"`
}

// TechnicalIssue is one pre-measured technical SEO problem.
type TechnicalIssue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // critical, high, medium, low
}

// TechnicalSEO carries the baseline technical score plus known issues.
type TechnicalSEO struct {
	Score  int              `json:"score"`
	Issues []TechnicalIssue `json:"issues"`
}

// PageSpeed holds Core Web Vitals style measurements. Mobile and Desktop
// are 0-100 optimization scores.
type PageSpeed struct {
	Mobile                 int     `json:"mobile"`
	Desktop                int     `json:"desktop"`
	FirstContentfulPaint   float64 `json:"first_contentful_paint"`
	LargestContentfulPaint float64 `json:"largest_contentful_paint"`
	CumulativeLayoutShift  float64 `json:"cumulative_layout_shift"`
}

// KeywordMetric is one keyword with its measured search metrics.
type KeywordMetric struct {
	Keyword    string `json:"keyword"`
	Volume     int    `json:"volume"`
	Difficulty int    `json:"difficulty"`
}

// CompetitorMetric is one competitor with its measured standing.
type CompetitorMetric struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Ranking int    `json:"ranking"`
}

// SERPFeature records presence of one search result feature.
type SERPFeature struct {
	Found bool `json:"found"`
}

// SERPPresence describes how the property shows up in search results.
type SERPPresence struct {
	OrganicResults   []string    `json:"organic_results"`
	MapsResults      SERPFeature `json:"maps_results"`
	FeaturedSnippets SERPFeature `json:"featured_snippets"`
	KnowledgePanel   SERPFeature `json:"knowledge_panel"`
	NewsResults      SERPFeature `json:"news_results"`
	VideoResults     SERPFeature `json:"video_results"`
	ImagesResults    SERPFeature `json:"images_results"`
}

// MarketPosition is the property's rank among measured competitors.
type MarketPosition struct {
	Rank             int `json:"rank"`
	TotalCompetitors int `json:"total_competitors"`
}

// BaselineMetrics is the pre-measured state of the web property. Produced
// by the measurement subsystem, shared read-only across all agents and
// the generator; nothing in this package mutates it.
type BaselineMetrics struct {
	SEOScore       int                `json:"seo_score"`
	TechnicalSEO   TechnicalSEO       `json:"technical_seo"`
	PageSpeed      PageSpeed          `json:"page_speed"`
	Keywords       []KeywordMetric    `json:"keywords"`
	Competitors    []CompetitorMetric `json:"competitors"`
	SERPPresence   SERPPresence       `json:"serp_presence"`
	MarketPosition MarketPosition     `json:"market_position"`
}

// AgentResult is the unit the coordinator aggregates: one per agent type.
// Owned exclusively by its agent while running; read-only once terminal.
type AgentResult struct {
	AgentType       AgentType              `json:"agent_type"`
	Status          AgentStatus            `json:"status"`
	Progress        int                    `json:"progress"` // 0-100, non-decreasing while running
	Findings        []string               `json:"findings"`
	Recommendations []string               `json:"recommendations"`
	Data            map[string]interface{} `json:"data,omitempty"`
	Error           string                 `json:"error,omitempty"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
}

// ActionItem is one structured, scheduled unit of the final plan.
type ActionItem struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Priority            string   `json:"priority"`  // critical, high, medium, low
	Impact              string   `json:"impact"`    // high, medium, low
	Effort              string   `json:"effort"`    // high, medium, low
	Category            string   `json:"category"`  // technical, content, keywords, competitors, user_experience, local_seo
	Timeframe           string   `json:"timeframe"` // immediate, this_week, this_month, next_quarter
	Steps               []string `json:"steps"`
	Tools               []string `json:"tools,omitempty"`
	ExpectedImprovement string   `json:"expected_improvement"`
	Dependencies        []string `json:"dependencies,omitempty"` // advisory metadata, not a scheduling graph
}

// ActionPlan is the prioritized improvement plan synthesized per run.
type ActionPlan struct {
	Summary              string       `json:"summary"`
	OverallScore         int          `json:"overall_score"`
	PotentialImprovement int          `json:"potential_improvement"`
	Timeline             string       `json:"timeline"`
	Items                []ActionItem `json:"items"`
	QuickWins            []string     `json:"quick_wins"`
	LongTermGoals        []string     `json:"long_term_goals"`
}

// BenchmarkScores are 0-100 comparison scores against the market.
type BenchmarkScores struct {
	Content        int `json:"content"`
	Technical      int `json:"technical"`
	Authority      int `json:"authority"`
	UserExperience int `json:"user_experience"`
}

// CompetitiveIntelligence is the derived competitive sub-report.
type CompetitiveIntelligence struct {
	MarketPosition        string          `json:"market_position"`
	CompetitiveAdvantages []string        `json:"competitive_advantages"`
	CompetitiveGaps       []string        `json:"competitive_gaps"`
	OpportunityAreas      []string        `json:"opportunity_areas"`
	BenchmarkScores       BenchmarkScores `json:"benchmark_scores"`
}

// TopicCluster groups keywords under one content topic.
type TopicCluster struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Priority string   `json:"priority"` // high, medium, low
}

// CalendarEntry is one planned piece of content.
type CalendarEntry struct {
	Week          int    `json:"week"`
	ContentType   string `json:"content_type"`
	Topic         string `json:"topic"`
	TargetKeyword string `json:"target_keyword"`
}

// ContentStrategy is the derived content sub-report.
type ContentStrategy struct {
	ContentGaps     []string        `json:"content_gaps"`
	TopicClusters   []TopicCluster  `json:"topic_clusters"`
	ContentCalendar []CalendarEntry `json:"content_calendar"`
}

// Milestone is one checkpoint in the execution tracking schedule.
type Milestone struct {
	Title         string    `json:"title"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"` // not_started, in_progress, done
	ActionItemIDs []string  `json:"action_item_ids"`
}

// KPI is one tracked metric with its current and target values.
type KPI struct {
	Metric    string `json:"metric"`
	Current   int    `json:"current"`
	Target    int    `json:"target"`
	Timeframe string `json:"timeframe"`
}

// ProgressTracking is the deterministic execution-tracking sub-report.
type ProgressTracking struct {
	Milestones []Milestone `json:"milestones"`
	KPIs       []KPI       `json:"kpis"`
}

// ComprehensiveAnalysis is the root aggregate for one analysis run. The
// coordinator mutates agent results/status/progress and the generator
// fills the four sub-reports; once Status is terminal the object is
// read-only and served as-is to pollers.
type ComprehensiveAnalysis struct {
	ID                      string                   `json:"id"`
	Status                  AgentStatus              `json:"status"`
	Progress                int                      `json:"progress"`
	AgentResults            []AgentResult            `json:"agent_results"`
	BasicAnalysis           BaselineMetrics          `json:"basic_analysis"`
	ActionPlan              *ActionPlan              `json:"action_plan,omitempty"`
	CompetitiveIntelligence *CompetitiveIntelligence `json:"competitive_intelligence,omitempty"`
	ContentStrategy         *ContentStrategy         `json:"content_strategy,omitempty"`
	ProgressTracking        *ProgressTracking        `json:"progress_tracking,omitempty"`
	StartedAt               time.Time                `json:"started_at"`
	CompletedAt             time.Time                `json:"completed_at,omitempty"`
}

// Agent is the contract every analysis variant satisfies. Analyze never
// returns an error and never panics outward: all internal failures are
// converted into a terminal failed AgentResult.
type Agent interface {
	Type() AgentType
	Analyze(ctx context.Context) AgentResult
}

// ProgressSink receives per-agent progress checkpoints so pollers can
// observe liveness before results settle. Implementations must be safe
// for concurrent use; a nil sink is valid and ignored.
type ProgressSink func(agentType AgentType, status AgentStatus, progress int)

// LLMProvider is the injected generative text-completion capability:
// one prompt in, free-form text out, bounded by a token budget.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}
