package core

import (
	"context"
	"fmt"
)

// uxStages builds the user-experience pipeline.
func uxStages() []stage {
	return []stage{
		{name: "mobile_experience", progress: 25, run: uxMobile},
		{name: "desktop_experience", progress: 45, run: uxDesktop},
		{name: "stability_review", progress: 65, run: uxStability},
		{name: "experience_score", progress: 85, run: uxScore},
		{name: "ai_insights", progress: 90, run: uxAIInsights},
	}
}

func uxMobile(_ context.Context, a *analysisAgent, res *AgentResult) error {
	mobile := a.baseline.PageSpeed.Mobile
	res.Data["mobile_experience"] = mobile
	if mobile < 70 {
		res.Findings = append(res.Findings, fmt.Sprintf("Mobile experience score of %d falls below the 70 usability bar", mobile))
		res.Recommendations = append(res.Recommendations, "Simplify above-the-fold mobile layout and reduce blocking resources")
	}
	return nil
}

func uxDesktop(_ context.Context, a *analysisAgent, res *AgentResult) error {
	desktop := a.baseline.PageSpeed.Desktop
	res.Data["desktop_experience"] = desktop
	if desktop < 80 {
		res.Findings = append(res.Findings, fmt.Sprintf("Desktop experience score of %d trails the expected 80", desktop))
	}
	return nil
}

func uxStability(_ context.Context, a *analysisAgent, res *AgentResult) error {
	cls := a.baseline.PageSpeed.CumulativeLayoutShift
	stable := cls <= 0.1
	res.Data["layout_stable"] = stable
	if !stable {
		res.Findings = append(res.Findings, fmt.Sprintf("Layout shift of %.2f interrupts reading and taps", cls))
		res.Recommendations = append(res.Recommendations, "Pin ad slots and media containers to fixed dimensions")
	}
	return nil
}

func uxScore(_ context.Context, a *analysisAgent, res *AgentResult) error {
	ps := a.baseline.PageSpeed
	score := float64(ps.Mobile)*0.5 + float64(ps.Desktop)*0.3
	if ps.CumulativeLayoutShift <= 0.1 {
		score += 20
	} else {
		score += 5
	}
	res.Data["ux_score"] = clamp(int(score), 0, 100)
	return nil
}

func uxAIInsights(ctx context.Context, a *analysisAgent, res *AgentResult) error {
	prompt := fmt.Sprintf(`You are a UX auditor reviewing a %s website (%s industry).
Mobile score: %v. Desktop score: %v. Layout stable: %v. Overall UX score: %v/100.
Write a short report with a "Findings:" section and a "Recommendations:" section,
each as a bulleted list of specific user-experience fixes.`,
		a.business.BusinessType, a.business.Industry,
		res.Data["mobile_experience"], res.Data["desktop_experience"],
		res.Data["layout_stable"], res.Data["ux_score"])
	return a.generateInsights(ctx, res, prompt, 800)
}
