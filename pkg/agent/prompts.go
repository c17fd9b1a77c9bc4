package agent

import (
	"fmt"
	"strings"

	"github.com/lucamori/seo-agent/pkg/seo"
)

const decisionSystemPrompt = "You are an expert SEO analyst agent with autonomous " +
	"decision-making. Start with the cheap essentials (scrape, detect), reach for " +
	"expensive actions only when the findings justify them, and stop as soon as " +
	"you have enough for actionable recommendations."

func decisionPrompt(state *State, maxIterations int) string {
	var sb strings.Builder

	sb.WriteString("Decide the next action for the SEO analysis of ")
	sb.WriteString(state.URL)
	sb.WriteString(".\n\nAvailable actions:\n")
	for _, action := range []Action{ActionScrape, ActionDetect, ActionFetchCompetitor, ActionGenerateFix, ActionGenerateReport, ActionStop} {
		fmt.Fprintf(&sb, "- %s: %s\n", action, actionDescriptions[action])
	}

	fmt.Fprintf(&sb, "\nCurrent state:\n- Iteration: %d/%d\n- Completed actions: %s\n- Findings: %s\n",
		state.Iteration, maxIterations,
		strings.Join(state.CompletedActions(), ", "),
		state.Observation())

	sb.WriteString("\nRespond with JSON only:\n")
	sb.WriteString(`{"reasoning": "why this action now", "next_action": "action_name", "stop_after": false, "confidence": 0}`)
	return sb.String()
}

func fixPrompt(url string, issues []seo.Issue) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate a concrete fix with a corrected HTML snippet for each issue on %s:\n", url)
	for _, issue := range issues {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", issue.Severity, issue.ID, issue.Message)
	}
	return sb.String()
}

func reportPrompt(url string, report seo.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the final SEO report for %s. Overall score: %d/100.\n", url, report.FinalScore)
	fmt.Fprintf(&sb, "Severity summary: %d errors, %d warnings, %d notices.\nIssues:\n",
		report.SeveritySummary[seo.SeverityError],
		report.SeveritySummary[seo.SeverityWarning],
		report.SeveritySummary[seo.SeverityNotice])
	for _, issue := range report.Issues {
		fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", issue.Severity, issue.Priority(), issue.ID, issue.Message)
	}
	sb.WriteString("Cover: summary of the site's health, the highest-priority fixes, and expected impact.")
	return sb.String()
}
