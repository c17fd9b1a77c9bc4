package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreNoIssues(t *testing.T) {
	report := Score(nil, nil)
	assert.Equal(t, 100, report.FinalScore)
	assert.Empty(t, report.CategoryBreakdown)
	assert.Equal(t, 0, report.SeveritySummary[SeverityError])
}

func TestScoreCategoryPenalties(t *testing.T) {
	issues := []Issue{
		{ID: "missing_title", Category: "technical", Severity: SeverityError, Penalty: 15},
		{ID: "missing_canonical", Category: "technical", Severity: SeverityWarning, Penalty: 10},
		{ID: "missing_meta_description", Category: "onpage", Severity: SeverityWarning, Penalty: 10},
	}

	report := Score(issues, nil)
	assert.Equal(t, 75, report.CategoryBreakdown["technical"])
	assert.Equal(t, 90, report.CategoryBreakdown["onpage"])

	// (75*0.35 + 90*0.30) / 0.65 = 81.9 -> 82
	assert.Equal(t, 82, report.FinalScore)

	assert.Equal(t, 1, report.SeveritySummary[SeverityError])
	assert.Equal(t, 2, report.SeveritySummary[SeverityWarning])
}

func TestScoreClampsCategoryAtZero(t *testing.T) {
	issues := []Issue{
		{Category: "content", Severity: SeverityError, Penalty: 80},
		{Category: "content", Severity: SeverityError, Penalty: 60},
	}

	report := Score(issues, nil)
	assert.Equal(t, 0, report.CategoryBreakdown["content"])
	assert.Equal(t, 0, report.FinalScore)
}

func TestScoreIncludesPerformance(t *testing.T) {
	perf := 50
	issues := []Issue{
		{Category: "onpage", Severity: SeverityWarning, Penalty: 10},
	}

	report := Score(issues, &perf)
	require.NotNil(t, report.PerformanceScore)
	assert.Equal(t, 50, *report.PerformanceScore)

	// (90*0.30 + 50*0.10) / 0.40 = 80
	assert.Equal(t, 80, report.FinalScore)
}

func TestScoreUnknownCategoryGetsDefaultWeight(t *testing.T) {
	issues := []Issue{
		{Category: "structure", Severity: SeverityWarning, Penalty: 10},
	}

	report := Score(issues, nil)
	assert.Equal(t, 90, report.CategoryBreakdown["structure"])
	assert.Equal(t, 90, report.FinalScore)
}
