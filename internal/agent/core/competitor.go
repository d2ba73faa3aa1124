package core

import (
	"context"
	"fmt"
	"sort"
)

// competitorStages builds the competitive-landscape pipeline.
func competitorStages() []stage {
	return []stage{
		{name: "landscape_review", progress: 25, run: competitorLandscape},
		{name: "strength_rating", progress: 50, run: competitorStrength},
		{name: "gap_detection", progress: 75, run: competitorGaps},
		{name: "ai_insights", progress: 90, run: competitorAIInsights},
	}
}

func competitorLandscape(_ context.Context, a *analysisAgent, res *AgentResult) error {
	competitors := a.baseline.Competitors
	res.Data["competitor_count"] = len(competitors)
	if len(competitors) == 0 {
		res.Findings = append(res.Findings, "No competitor measurements are available for this market")
		return nil
	}

	sorted := make([]CompetitorMetric, len(competitors))
	copy(sorted, competitors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	leader := sorted[0]
	res.Data["market_leader"] = leader.Name
	res.Findings = append(res.Findings, fmt.Sprintf("%s leads the measured market with a score of %d", leader.Name, leader.Score))
	return nil
}

// competitorStrength derives the market-rank based strength label and an
// estimated market share.
func competitorStrength(_ context.Context, a *analysisAgent, res *AgentResult) error {
	pos := a.baseline.MarketPosition
	label := "unknown"
	if pos.TotalCompetitors > 0 {
		ratio := float64(pos.Rank) / float64(pos.TotalCompetitors)
		switch {
		case ratio <= 0.25:
			label = "dominant"
		case ratio <= 0.5:
			label = "strong"
		case ratio <= 0.75:
			label = "challenger"
		default:
			label = "emerging"
		}
		share := 100.0 / float64(pos.TotalCompetitors+1)
		if pos.Rank <= 3 {
			share *= 2
		}
		res.Data["estimated_market_share"] = fmt.Sprintf("%.1f%%", share)
		res.Findings = append(res.Findings, fmt.Sprintf("Property ranks %d of %d in its market", pos.Rank, pos.TotalCompetitors))
	}
	res.Data["competitive_strength"] = label
	return nil
}

func competitorGaps(_ context.Context, a *analysisAgent, res *AgentResult) error {
	own := a.baseline.SEOScore
	ahead := 0
	for _, c := range a.baseline.Competitors {
		if c.Score > own {
			ahead++
			if c.Score-own >= 20 {
				res.Findings = append(res.Findings, fmt.Sprintf("%s outscores the property by %d points", c.Name, c.Score-own))
			}
		}
	}
	res.Data["competitors_ahead"] = ahead
	if ahead > 0 {
		res.Recommendations = append(res.Recommendations, "Audit the top competitor's content and backlink profile for replicable tactics")
	}
	return nil
}

func competitorAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a competitive analyst for a %s business in the %s industry (%s).
The property ranks %d of %d competitors; competitive strength is rated "%v".
Competitors ahead on score: %v.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific competitive moves.`,
		a.business.BusinessType, a.business.Industry, a.business.Location,
		a.baseline.MarketPosition.Rank, a.baseline.MarketPosition.TotalCompetitors,
		res.Data["competitive_strength"], res.Data["competitors_ahead"])
	return a.generateInsights(ctx, res, prompt, 800)
}
