package seo

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNotice  Severity = "notice"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Issue is one detected problem on a scanned page. Penalty feeds the category
// score; severity and difficulty feed the fix priority.
type Issue struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Severity       Severity   `json:"severity"`
	Penalty        int        `json:"penalty"`
	Difficulty     Difficulty `json:"difficulty"`
	Message        string     `json:"message"`
	Recommendation string     `json:"recommendation"`
}

var severityWeights = map[Severity]int{
	SeverityError:   100,
	SeverityWarning: 60,
	SeverityNotice:  30,
}

var difficultyWeights = map[Difficulty]int{
	DifficultyEasy:   20,
	DifficultyMedium: 60,
	DifficultyHard:   100,
}

// Priority ranks an issue for the fix roadmap by combining severity, penalty
// impact and fix difficulty.
func (i Issue) Priority() string {
	severityWeight, ok := severityWeights[i.Severity]
	if !ok {
		severityWeight = 30
	}
	impactWeight := 20
	if i.Penalty > 20 {
		impactWeight = 100
	} else if i.Penalty > 10 {
		impactWeight = 60
	}
	difficultyWeight, ok := difficultyWeights[i.Difficulty]
	if !ok {
		difficultyWeight = 60
	}

	score := float64(severityWeight)*0.5 + float64(impactWeight)*0.3 + float64(difficultyWeight)*0.2
	switch {
	case score > 70:
		return "high"
	case score > 40:
		return "medium"
	default:
		return "low"
	}
}

const (
	minTitleLength = 20
	maxTitleLength = 60
	minMetaChars   = 70
	maxMetaChars   = 160
	minWordCount   = 300
	maxWordCount   = 3000
	minInternal    = 3
	maxPageBytes   = 2000 * 1024
)

// Detect runs the on-page checks against a scraped page.
func Detect(page *Page) []Issue {
	var issues []Issue
	add := func(issue Issue) { issues = append(issues, issue) }

	if page.Title == "" {
		add(Issue{
			ID: "missing_title", Category: "technical", Severity: SeverityError,
			Penalty: 15, Difficulty: DifficultyEasy,
			Message:        "Page has no <title> tag",
			Recommendation: "Add a <title> with the primary keyword, 50-60 characters.",
		})
	} else if len(page.Title) < minTitleLength {
		add(Issue{
			ID: "short_title", Category: "onpage", Severity: SeverityWarning,
			Penalty: 8, Difficulty: DifficultyEasy,
			Message:        fmt.Sprintf("Title is only %d characters", len(page.Title)),
			Recommendation: "Expand the title to 50-60 characters.",
		})
	} else if len(page.Title) > maxTitleLength {
		add(Issue{
			ID: "long_title", Category: "onpage", Severity: SeverityWarning,
			Penalty: 6, Difficulty: DifficultyEasy,
			Message:        fmt.Sprintf("Title is %d characters and will be truncated in search results", len(page.Title)),
			Recommendation: "Shorten the title to under 60 characters.",
		})
	}

	if page.MetaDescription == "" {
		add(Issue{
			ID: "missing_meta_description", Category: "onpage", Severity: SeverityWarning,
			Penalty: 10, Difficulty: DifficultyEasy,
			Message:        "Page has no meta description",
			Recommendation: "Add a 140-160 character meta description.",
		})
	} else if len(page.MetaDescription) < minMetaChars {
		add(Issue{
			ID: "short_meta_description", Category: "onpage", Severity: SeverityNotice,
			Penalty: 4, Difficulty: DifficultyEasy,
			Message:        fmt.Sprintf("Meta description is only %d characters", len(page.MetaDescription)),
			Recommendation: "Lengthen the description to 140-160 characters.",
		})
	} else if len(page.MetaDescription) > maxMetaChars {
		add(Issue{
			ID: "long_meta_description", Category: "onpage", Severity: SeverityWarning,
			Penalty: 5, Difficulty: DifficultyEasy,
			Message:        fmt.Sprintf("Meta description is %d characters and will be truncated", len(page.MetaDescription)),
			Recommendation: "Trim the description to 140-160 characters.",
		})
	}

	if len(page.H1s) == 0 {
		add(Issue{
			ID: "missing_h1", Category: "content", Severity: SeverityError,
			Penalty: 18, Difficulty: DifficultyEasy,
			Message:        "Page has no h1 heading",
			Recommendation: "Add a single semantic <h1> describing the main topic.",
		})
	} else {
		if len(page.H1s) > 1 {
			add(Issue{
				ID: "multiple_h1", Category: "content", Severity: SeverityWarning,
				Penalty: 8, Difficulty: DifficultyMedium,
				Message:        fmt.Sprintf("Found %d h1 tags", len(page.H1s)),
				Recommendation: "Keep one main h1 and demote the rest to h2.",
			})
		}
		if page.Title != "" && !headingMatchesTitle(page.H1s[0], page.Title) {
			add(Issue{
				ID: "h1_title_mismatch", Category: "content", Severity: SeverityNotice,
				Penalty: 5, Difficulty: DifficultyEasy,
				Message:        "h1 and title do not share the main topic",
				Recommendation: "Align the h1 and title on the same primary keyword.",
			})
		}
		if len(page.H2s) == 0 {
			add(Issue{
				ID: "missing_h2", Category: "content", Severity: SeverityNotice,
				Penalty: 4, Difficulty: DifficultyMedium,
				Message:        "No h2 headings found",
				Recommendation: "Add h2 headings for logical subsections.",
			})
		}
	}

	if page.ImagesNoAlt > 0 {
		add(Issue{
			ID: "missing_alt", Category: "onpage", Severity: SeverityWarning,
			Penalty: min(20, page.ImagesNoAlt*2), Difficulty: DifficultyMedium,
			Message:        fmt.Sprintf("%d of %d images have no alt text", page.ImagesNoAlt, page.Images),
			Recommendation: "Add descriptive alt text to every meaningful image.",
		})
	}

	if page.Canonical == "" {
		add(Issue{
			ID: "missing_canonical", Category: "technical", Severity: SeverityWarning,
			Penalty: 10, Difficulty: DifficultyEasy,
			Message:        "Page has no rel=canonical link",
			Recommendation: "Add a self-referencing canonical to avoid duplicate content.",
		})
	}

	if !page.HTTPS {
		add(Issue{
			ID: "missing_https", Category: "security", Severity: SeverityError,
			Penalty: 30, Difficulty: DifficultyHard,
			Message:        "Page is served over plain HTTP",
			Recommendation: "Install a TLS certificate and 301-redirect HTTP to HTTPS.",
		})
	}

	if page.StatusCode >= 400 {
		add(Issue{
			ID: "error_status", Category: "technical", Severity: SeverityError,
			Penalty: 25, Difficulty: DifficultyMedium,
			Message:        fmt.Sprintf("Page returned HTTP status %d", page.StatusCode),
			Recommendation: "Fix the page to return 200, or redirect to a live URL.",
		})
	}

	if page.InternalLinks < minInternal {
		add(Issue{
			ID: "poor_internal_linking", Category: "structure", Severity: SeverityWarning,
			Penalty: 10, Difficulty: DifficultyMedium,
			Message:        fmt.Sprintf("Only %d internal links found", page.InternalLinks),
			Recommendation: "Add at least 3-5 relevant internal links.",
		})
	}

	if page.WordCount < minWordCount {
		add(Issue{
			ID: "thin_content", Category: "content", Severity: SeverityWarning,
			Penalty: 12, Difficulty: DifficultyMedium,
			Message:        fmt.Sprintf("Page body has only %d words", page.WordCount),
			Recommendation: "Expand the content to 300+ words of relevant information.",
		})
	} else if page.WordCount > maxWordCount {
		add(Issue{
			ID: "excessive_content", Category: "content", Severity: SeverityNotice,
			Penalty: 2, Difficulty: DifficultyEasy,
			Message:        fmt.Sprintf("Page body is very long (%d words)", page.WordCount),
			Recommendation: "Consider splitting into subpages or adding subsections.",
		})
	}

	if page.HTMLBytes > maxPageBytes {
		add(Issue{
			ID: "heavy_page", Category: "performance", Severity: SeverityWarning,
			Penalty: 8, Difficulty: DifficultyHard,
			Message:        fmt.Sprintf("Page HTML weighs %d KB", page.HTMLBytes/1024),
			Recommendation: "Compress images, minify JS/CSS and enable lazy loading.",
		})
	}

	return issues
}

func headingMatchesTitle(h1, title string) bool {
	a := strings.ToLower(strings.TrimSpace(h1))
	b := strings.ToLower(strings.TrimSpace(title))
	if a == "" || b == "" {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
