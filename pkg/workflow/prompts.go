package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucamori/seo-agent/pkg/seo"
)

const analystSystemPrompt = "You are a senior SEO consultant. Answer with concrete, " +
	"actionable guidance grounded in the audit data and context provided. " +
	"Be specific to this site; do not pad with generic advice."

func fixesPrompt(page *seo.Page, issues []seo.Issue) string {
	var sb strings.Builder
	sb.WriteString("Generate a concrete fix for each issue found on ")
	sb.WriteString(page.URL)
	sb.WriteString(". For every issue give the corrected HTML snippet or the exact change to make.\n\nIssues:\n")
	writeIssues(&sb, issues)
	return sb.String()
}

func roadmapPrompt(page *seo.Page, report seo.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Build a prioritized SEO roadmap for %s (current score %d/100). ", page.URL, report.FinalScore)
	sb.WriteString("Group the work into: quick wins (this week), structural fixes (this month), and long-term improvements. ")
	sb.WriteString("Order by the priority attached to each issue.\n\nIssues:\n")
	writeIssues(&sb, report.Issues)
	return sb.String()
}

func strategyPrompt(page *seo.Page, report seo.Report, competitors []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a competitive SEO strategy for %s (score %d/100).\n", page.URL, report.FinalScore)
	if len(competitors) > 0 {
		sb.WriteString("Known competitors: ")
		sb.WriteString(strings.Join(competitors, ", "))
		sb.WriteString(".\n")
	}
	sb.WriteString("Cover: where the site is losing to competitors, which content gaps to close first, and which technical advantages to press.\n\nAudit summary:\n")
	writeIssues(&sb, report.Issues)
	return sb.String()
}

func competitorsPrompt(page *seo.Page) string {
	return fmt.Sprintf(
		"List the 3 most likely organic search competitors for %s (domain %s, topic: %s). "+
			`Respond with JSON only: {"competitors": ["https://...", "https://...", "https://..."]}`,
		page.URL, page.Domain, page.Title)
}

func overviewSection(page *seo.Page, report seo.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan of %s scored %d/100.", page.URL, report.FinalScore)
	fmt.Fprintf(&sb, " Issues: %d errors, %d warnings, %d notices.",
		report.SeveritySummary[seo.SeverityError],
		report.SeveritySummary[seo.SeverityWarning],
		report.SeveritySummary[seo.SeverityNotice])
	if page.Title != "" {
		fmt.Fprintf(&sb, " Page title: %q.", page.Title)
	}
	return sb.String()
}

func issuesSection(issues []seo.Issue) string {
	var sb strings.Builder
	writeIssues(&sb, issues)
	return sb.String()
}

func technicalSection(issues []seo.Issue) string {
	var technical []seo.Issue
	for _, issue := range issues {
		if issue.Category == "technical" || issue.Category == "security" {
			technical = append(technical, issue)
		}
	}
	var sb strings.Builder
	writeIssues(&sb, technical)
	return sb.String()
}

func writeIssues(sb *strings.Builder, issues []seo.Issue) {
	if len(issues) == 0 {
		sb.WriteString("- none\n")
		return
	}
	for _, issue := range issues {
		fmt.Fprintf(sb, "- [%s/%s] %s: %s (%s)\n",
			issue.Severity, issue.Priority(), issue.ID, issue.Message, issue.Recommendation)
	}
}

// parseCompetitors extracts the competitor URL list from a JSON model reply,
// tolerating code fences around the object.
func parseCompetitors(raw string) ([]string, error) {
	cleaned := stripCodeFence(raw)
	var parsed struct {
		Competitors []string `json:"competitors"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse competitor list: %w", err)
	}
	return parsed.Competitors, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
