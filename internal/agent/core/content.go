package core

import (
	"context"
	"fmt"
)

// contentStages builds the content-quality pipeline.
func contentStages() []stage {
	return []stage{
		{name: "inventory_review", progress: 30, run: contentInventory},
		{name: "keyword_alignment", progress: 50, run: contentKeywordAlignment},
		{name: "depth_scoring", progress: 75, run: contentDepth},
		{name: "ai_insights", progress: 90, run: contentAIInsights},
	}
}

func contentInventory(_ context.Context, a *analysisAgent, res *AgentResult) error {
	products := len(a.business.Products)
	services := len(a.business.Services)
	res.Data["product_count"] = products
	res.Data["service_count"] = services

	if products+services == 0 {
		res.Findings = append(res.Findings, "No product or service pages are described for the property")
		res.Recommendations = append(res.Recommendations, "Create a dedicated landing page for each core service")
	} else {
		res.Findings = append(res.Findings, fmt.Sprintf("Property covers %d products and %d services", products, services))
	}
	return nil
}

func contentKeywordAlignment(_ context.Context, a *analysisAgent, res *AgentResult) error {
	targeted := len(a.business.Keywords)
	ranking := len(a.baseline.Keywords)
	res.Data["targeted_keywords"] = targeted
	res.Data["ranking_keywords"] = ranking

	if ranking < targeted {
		res.Findings = append(res.Findings, fmt.Sprintf("Only %d of %d targeted keywords currently rank", ranking, targeted))
		res.Recommendations = append(res.Recommendations, "Map each unranked target keyword to a dedicated page")
	}
	return nil
}

func contentDepth(_ context.Context, a *analysisAgent, res *AgentResult) error {
	// Depth heuristic: description length stands in for on-page copy depth.
	depth := clamp(len(a.business.Description)/8, 0, 60)
	coverage := clamp((len(a.business.Products)+len(a.business.Services))*8, 0, 40)
	score := clamp(depth+coverage, 0, 100)
	res.Data["content_score"] = score

	if score < 50 {
		res.Findings = append(res.Findings, fmt.Sprintf("Content depth score of %d suggests thin copy across the property", score))
		res.Recommendations = append(res.Recommendations, "Expand key pages to at least 800 words of original copy")
	}
	return nil
}

func contentAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a content strategist reviewing a %s business in the %s industry (%s).
Products: %s. Services: %s. Target keywords: %s.
Content depth score: %v/100.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific content improvements.`,
		a.business.BusinessType, a.business.Industry, a.business.Location,
		joinOrNone(a.business.Products), joinOrNone(a.business.Services), joinOrNone(a.business.Keywords),
		res.Data["content_score"])
	return a.generateInsights(ctx, res, prompt, 900)
}
