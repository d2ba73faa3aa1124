package core

import (
	"context"
	"fmt"
)

// keywordStages builds the keyword-opportunity pipeline.
func keywordStages() []stage {
	return []stage{
		{name: "coverage_review", progress: 20, run: keywordCoverage},
		{name: "opportunity_scan", progress: 40, run: keywordOpportunities},
		{name: "difficulty_profile", progress: 60, run: keywordDifficulty},
		{name: "intent_grouping", progress: 80, run: keywordIntent},
		{name: "ai_insights", progress: 90, run: keywordAIInsights},
	}
}

func keywordCoverage(_ context.Context, a *analysisAgent, res *AgentResult) error {
	count := len(a.baseline.Keywords)
	res.Data["keyword_count"] = count
	if count < 10 {
		res.Findings = append(res.Findings, fmt.Sprintf("Only %d keywords rank for the property, below the 10 expected for its market", count))
		res.Recommendations = append(res.Recommendations, "Broaden the keyword portfolio with long-tail variants of core terms")
	} else {
		res.Findings = append(res.Findings, fmt.Sprintf("Property ranks for %d keywords", count))
	}
	return nil
}

// keywordOpportunities flags high-volume low-difficulty terms.
func keywordOpportunities(_ context.Context, a *analysisAgent, res *AgentResult) error {
	var opportunities []string
	for _, kw := range a.baseline.Keywords {
		if kw.Volume >= 500 && kw.Difficulty <= 40 {
			opportunities = append(opportunities, kw.Keyword)
			res.Findings = append(res.Findings, fmt.Sprintf("\"%s\" is a high-opportunity term (volume %d, difficulty %d)", kw.Keyword, kw.Volume, kw.Difficulty))
		}
	}
	res.Data["opportunity_keywords"] = opportunities
	if len(opportunities) > 0 {
		res.Recommendations = append(res.Recommendations, "Prioritize dedicated pages for the identified high-opportunity keywords")
	}
	return nil
}

func keywordDifficulty(_ context.Context, a *analysisAgent, res *AgentResult) error {
	if len(a.baseline.Keywords) == 0 {
		res.Data["avg_difficulty"] = 0
		return nil
	}
	total := 0
	for _, kw := range a.baseline.Keywords {
		total += kw.Difficulty
	}
	avg := total / len(a.baseline.Keywords)
	res.Data["avg_difficulty"] = avg
	if avg > 60 {
		res.Findings = append(res.Findings, fmt.Sprintf("Average keyword difficulty of %d means rankings will be slow to move", avg))
	}
	return nil
}

func keywordIntent(_ context.Context, a *analysisAgent, res *AgentResult) error {
	// Simple intent split: terms matching a product or service name are
	// transactional, everything else informational.
	transactional := 0
	names := append(append([]string{}, a.business.Products...), a.business.Services...)
	for _, kw := range a.baseline.Keywords {
		for _, n := range names {
			if n != "" && containsFold(kw.Keyword, n) {
				transactional++
				break
			}
		}
	}
	res.Data["transactional_keywords"] = transactional
	res.Data["informational_keywords"] = len(a.baseline.Keywords) - transactional
	if transactional == 0 && len(a.baseline.Keywords) > 0 {
		res.Recommendations = append(res.Recommendations, "Add commercial-intent keywords that name specific products or services")
	}
	return nil
}

func keywordAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a keyword researcher for a %s business in %s (%s industry).
The property ranks for %v keywords, average difficulty %v.
High-opportunity terms: %v. Target keywords: %s.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific keyword plays.`,
		a.business.BusinessType, a.business.Location, a.business.Industry,
		res.Data["keyword_count"], res.Data["avg_difficulty"],
		res.Data["opportunity_keywords"], joinOrNone(a.business.Keywords))
	return a.generateInsights(ctx, res, prompt, 800)
}
