package core

import (
	"context"
	"fmt"
	"strings"
)

// technicalStages builds the technical-health pipeline: baseline issue
// review, Core Web Vitals scoring, simulated security/accessibility
// checks, schema coverage, then generative insights.
func technicalStages() []stage {
	return []stage{
		{name: "baseline_review", progress: 30, run: technicalBaseline},
		{name: "core_web_vitals", progress: 45, run: technicalWebVitals},
		{name: "security_accessibility", progress: 60, run: technicalSecurity},
		{name: "schema_coverage", progress: 75, run: technicalSchema},
		{name: "ai_insights", progress: 90, run: technicalAIInsights},
	}
}

func technicalBaseline(_ context.Context, a *analysisAgent, res *AgentResult) error {
	tech := a.baseline.TechnicalSEO
	res.Data["baseline_technical_score"] = tech.Score
	res.Findings = append(res.Findings, fmt.Sprintf("Baseline technical SEO score is %d/100", tech.Score))

	critical := 0
	for _, issue := range tech.Issues {
		if issue.Impact == "critical" {
			critical++
			res.Findings = append(res.Findings, fmt.Sprintf("Critical issue: %s - %s", issue.Title, issue.Description))
			res.Recommendations = append(res.Recommendations, fmt.Sprintf("Resolve %s before any other technical work", issue.Title))
		}
	}
	res.Data["critical_issue_count"] = critical
	return nil
}

func technicalWebVitals(_ context.Context, a *analysisAgent, res *AgentResult) error {
	ps := a.baseline.PageSpeed
	cwv := webVitalsScore(ps)
	res.Data["core_web_vitals_score"] = cwv

	if ps.Mobile < 50 {
		res.Findings = append(res.Findings, fmt.Sprintf("Mobile page speed score of %d is well below the recommended 70", ps.Mobile))
		res.Recommendations = append(res.Recommendations, "Compress images and defer non-critical JavaScript to improve mobile load time")
	}
	if ps.LargestContentfulPaint > 2.5 {
		res.Findings = append(res.Findings, fmt.Sprintf("Largest Contentful Paint of %.1fs exceeds the 2.5s threshold", ps.LargestContentfulPaint))
	}
	if ps.CumulativeLayoutShift > 0.1 {
		res.Findings = append(res.Findings, fmt.Sprintf("Cumulative Layout Shift of %.2f causes visible instability", ps.CumulativeLayoutShift))
		res.Recommendations = append(res.Recommendations, "Reserve dimensions for images and embeds to reduce layout shift")
	}
	return nil
}

// technicalSecurity derives simulated security and accessibility scores.
// No live probing happens here: the scores are deterministic projections
// from the baseline so reruns stay reproducible.
func technicalSecurity(_ context.Context, a *analysisAgent, res *AgentResult) error {
	security := clamp(60+a.baseline.TechnicalSEO.Score/4, 0, 100)
	accessibility := clamp(55+a.baseline.PageSpeed.Desktop/4, 0, 100)
	res.Data["security_score"] = security
	res.Data["accessibility_score"] = accessibility
	if security < 75 {
		res.Recommendations = append(res.Recommendations, "Enforce HTTPS everywhere and add standard security headers")
	}
	if accessibility < 70 {
		res.Recommendations = append(res.Recommendations, "Add alt text and landmark roles to improve accessibility")
	}
	return nil
}

func technicalSchema(_ context.Context, a *analysisAgent, res *AgentResult) error {
	serp := a.baseline.SERPPresence
	coverage := 20
	if serp.FeaturedSnippets.Found {
		coverage += 30
	}
	if serp.KnowledgePanel.Found {
		coverage += 30
	}
	if serp.MapsResults.Found {
		coverage += 20
	}
	res.Data["schema_coverage_score"] = coverage
	if coverage < 50 {
		res.Findings = append(res.Findings, "Structured data coverage is thin: few rich results appear for the brand")
		res.Recommendations = append(res.Recommendations, "Add Organization, LocalBusiness and FAQ schema markup to key pages")
	}

	// Weighted composite of all technical sub-scores.
	base := a.baseline.TechnicalSEO.Score
	cwv, _ := res.Data["core_web_vitals_score"].(int)
	security, _ := res.Data["security_score"].(int)
	accessibility, _ := res.Data["accessibility_score"].(int)
	composite := float64(base)*0.4 + float64(cwv)*0.3 + float64(security+accessibility)/2*0.15 + float64(coverage)*0.15
	res.Data["technical_score"] = clamp(int(composite+0.5), 0, 100)
	return nil
}

func technicalAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a technical SEO specialist reviewing %s, a %s business in %s.
Technical score: %v/100. Core Web Vitals score: %v/100. Schema coverage: %v/100.
Known critical issues: %v.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific, concrete items.`,
		a.business.Description, a.business.BusinessType, a.business.Location,
		res.Data["technical_score"], res.Data["core_web_vitals_score"], res.Data["schema_coverage_score"],
		res.Data["critical_issue_count"])
	return a.generateInsights(ctx, res, prompt, 900)
}

// webVitalsScore folds the raw vitals into one 0-100 score.
func webVitalsScore(ps PageSpeed) int {
	score := float64(ps.Mobile+ps.Desktop) / 2
	if ps.FirstContentfulPaint > 1.8 {
		score -= 10
	}
	if ps.LargestContentfulPaint > 2.5 {
		score -= 15
	}
	if ps.CumulativeLayoutShift > 0.1 {
		score -= 10
	}
	return clamp(int(score), 0, 100)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
