package core

import (
	"strings"
)

// InsightExtractor turns free-form model output into ordered finding and
// recommendation lists. Section headers are detected by vocabulary words;
// bulleted ("-") and numbered ("1.") lines are collected into whichever
// section is active. Lines shorter than MinLineLength after marker
// stripping are discarded, which also drops header lines mistaken for
// content. Bulleted lines before the first recognized header have no
// active section and are silently dropped.
type InsightExtractor struct {
	FindingWords        []string
	RecommendationWords []string
	MinLineLength       int
}

// NewInsightExtractor returns an extractor with the default vocabulary.
func NewInsightExtractor(minLineLength int) *InsightExtractor {
	if minLineLength <= 0 {
		minLineLength = 10
	}
	return &InsightExtractor{
		FindingWords:        []string{"finding", "findings", "observation", "observations", "issue", "issues", "insight", "insights"},
		RecommendationWords: []string{"recommendation", "recommendations", "suggestion", "suggestions", "action", "actions", "next step", "next steps"},
		MinLineLength:       minLineLength,
	}
}

// Extract scans text line by line and returns the collected findings and
// recommendations in discovery order. Each call starts with no active
// section; no state persists between calls.
func (e *InsightExtractor) Extract(text string) (findings []string, recommendations []string) {
	const (
		sectionNone = iota
		sectionFindings
		sectionRecommendations
	)
	active := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if containsAny(lower, e.FindingWords) {
			active = sectionFindings
		} else if containsAny(lower, e.RecommendationWords) {
			active = sectionRecommendations
		}

		content, ok := stripListMarker(line)
		if !ok || active == sectionNone {
			continue
		}
		if len(content) <= e.MinLineLength {
			continue
		}
		switch active {
		case sectionFindings:
			findings = append(findings, content)
		case sectionRecommendations:
			recommendations = append(recommendations, content)
		}
	}
	return findings, recommendations
}

func containsAny(line string, words []string) bool {
	for _, w := range words {
		if strings.Contains(line, w) {
			return true
		}
	}
	return false
}

// stripListMarker removes a leading "-", "*" or "N." marker and reports
// whether the line was a list item at all.
func stripListMarker(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	// numbered item: one or more digits followed by a dot
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && line[i] == '.' {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}
