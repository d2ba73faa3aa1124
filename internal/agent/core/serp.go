package core

import (
	"context"
	"fmt"
	"strings"
)

// serpStages builds the search-result-presence pipeline.
func serpStages() []stage {
	return []stage{
		{name: "organic_review", progress: 30, run: serpOrganic},
		{name: "feature_census", progress: 55, run: serpFeatures},
		{name: "visibility_score", progress: 80, run: serpVisibility},
		{name: "ai_insights", progress: 90, run: serpAIInsights},
	}
}

func serpOrganic(_ context.Context, a *analysisAgent, res *AgentResult) error {
	organic := len(a.baseline.SERPPresence.OrganicResults)
	res.Data["organic_results"] = organic
	if organic == 0 {
		res.Findings = append(res.Findings, "The property does not appear in measured organic results")
		res.Recommendations = append(res.Recommendations, "Verify indexing in Search Console and submit an XML sitemap")
	} else {
		res.Findings = append(res.Findings, fmt.Sprintf("Property appears in %d measured organic results", organic))
	}
	return nil
}

func serpFeatures(_ context.Context, a *analysisAgent, res *AgentResult) error {
	serp := a.baseline.SERPPresence
	var present, missing []string
	for _, f := range []struct {
		name  string
		found bool
	}{
		{"maps", serp.MapsResults.Found},
		{"featured_snippets", serp.FeaturedSnippets.Found},
		{"knowledge_panel", serp.KnowledgePanel.Found},
		{"news", serp.NewsResults.Found},
		{"video", serp.VideoResults.Found},
		{"images", serp.ImagesResults.Found},
	} {
		if f.found {
			present = append(present, f.name)
		} else {
			missing = append(missing, f.name)
		}
	}
	res.Data["features_present"] = present
	res.Data["features_missing"] = missing
	if !serp.MapsResults.Found && a.business.Location != "" {
		res.Findings = append(res.Findings, "No maps presence despite a physical location")
		res.Recommendations = append(res.Recommendations, "Claim and complete the Google Business Profile listing")
	}
	if !serp.FeaturedSnippets.Found {
		res.Recommendations = append(res.Recommendations, "Structure FAQ content to target featured snippets")
	}
	return nil
}

func serpVisibility(_ context.Context, a *analysisAgent, res *AgentResult) error {
	serp := a.baseline.SERPPresence
	score := clamp(len(serp.OrganicResults)*8, 0, 40)
	for _, found := range []bool{serp.MapsResults.Found, serp.FeaturedSnippets.Found, serp.KnowledgePanel.Found, serp.NewsResults.Found, serp.VideoResults.Found, serp.ImagesResults.Found} {
		if found {
			score += 10
		}
	}
	res.Data["serp_visibility_score"] = clamp(score, 0, 100)
	if score < 40 {
		res.Findings = append(res.Findings, fmt.Sprintf("Overall SERP visibility score of %d leaves most result surfaces unclaimed", score))
	}
	return nil
}

func serpAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a search visibility analyst for a %s business in %s.
Organic results: %v. Features present: %v. Features missing: %v.
Visibility score: %v/100.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific visibility improvements.`,
		a.business.BusinessType, a.business.Location,
		res.Data["organic_results"], res.Data["features_present"], res.Data["features_missing"],
		res.Data["serp_visibility_score"])
	return a.generateInsights(ctx, res, prompt, 800)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
