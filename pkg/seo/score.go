package seo

import "math"

var categoryWeights = map[string]float64{
	"technical":   0.35,
	"onpage":      0.30,
	"content":     0.20,
	"performance": 0.10,
	"other":       0.05,
	"ux":          0.05,
	"security":    0.05,
}

const defaultCategoryWeight = 0.05

// Report is the scoring output for one scan.
type Report struct {
	FinalScore        int              `json:"final_score"`
	CategoryBreakdown map[string]int   `json:"category_breakdown"`
	PerformanceScore  *int             `json:"performance_score,omitempty"`
	SeveritySummary   map[Severity]int `json:"severity_summary"`
	Issues            []Issue          `json:"issues"`
}

// Score computes the weighted 0-100 score from detected issues. Each category
// starts at 100 and loses the summed penalties of its issues; the final score
// is the weight-normalized average over the categories present, plus the
// measured performance score when one is available.
func Score(issues []Issue, performanceScore *int) Report {
	penalties := make(map[string]int)
	severity := map[Severity]int{SeverityError: 0, SeverityWarning: 0, SeverityNotice: 0}

	for _, issue := range issues {
		category := issue.Category
		if category == "" {
			category = "other"
		}
		penalties[category] += issue.Penalty
		if _, ok := severity[issue.Severity]; ok {
			severity[issue.Severity]++
		} else {
			severity[SeverityNotice]++
		}
	}

	breakdown := make(map[string]int, len(penalties))
	for category, penalty := range penalties {
		score := 100 - penalty
		if score < 0 {
			score = 0
		}
		breakdown[category] = score
	}

	total := 0.0
	totalWeights := 0.0
	for category, score := range breakdown {
		weight, ok := categoryWeights[category]
		if !ok {
			weight = defaultCategoryWeight
		}
		total += float64(score) * weight
		totalWeights += weight
	}

	if performanceScore != nil {
		total += float64(*performanceScore) * categoryWeights["performance"]
		totalWeights += categoryWeights["performance"]
	}

	final := 100
	if totalWeights > 0 {
		final = int(math.Round(total / totalWeights))
	}
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}

	return Report{
		FinalScore:        final,
		CategoryBreakdown: breakdown,
		PerformanceScore:  performanceScore,
		SeveritySummary:   severity,
		Issues:            issues,
	}
}
