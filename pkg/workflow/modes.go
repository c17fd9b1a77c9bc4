// Package workflow runs the fixed-stage scan pipeline. Stage order is not
// user-configurable; the mode only selects how deep the fixed sequence goes.
package workflow

import "fmt"

type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeFull     Mode = "full"
	ModeAdvanced Mode = "advanced"
)

// ParseMode validates a mode string, defaulting empty input to quick.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeQuick, nil
	case ModeQuick, ModeFull, ModeAdvanced:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown scan mode %q", s)
	}
}

const (
	StageScraping    = "scraping"
	StageDetecting   = "detecting"
	StageScoring     = "scoring"
	StagePerformance = "performance"
	StageAuthority   = "authority"
	StageFixes       = "fixes"
	StageRoadmap     = "roadmap"
	StageKeywords    = "keywords"
	StageCompetitors = "competitors"
	StageStrategy    = "strategy"
)

var (
	quickStages = []string{StageScraping, StageDetecting, StageScoring}
	fullStages  = append(quickStages[:len(quickStages):len(quickStages)],
		StagePerformance, StageAuthority, StageFixes, StageRoadmap, StageKeywords)
	advancedStages = append(fullStages[:len(fullStages):len(fullStages)],
		StageCompetitors, StageStrategy)
)

// Stages returns the fixed stage sequence for a mode.
func Stages(mode Mode) []string {
	switch mode {
	case ModeFull:
		return fullStages
	case ModeAdvanced:
		return advancedStages
	default:
		return quickStages
	}
}
