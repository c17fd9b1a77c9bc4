package seo

import (
	"context"
	"sort"
	"strings"
	"time"
)

// PerformanceAnalyzer estimates a 0-100 performance score for a page.
type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, page *Page) (int, error)
}

// HeuristicPerformance scores from the signals the scraper already has: page
// weight, load time and image count. A field-data integration can replace it
// behind the same interface.
type HeuristicPerformance struct{}

func (HeuristicPerformance) Analyze(ctx context.Context, page *Page) (int, error) {
	score := 100

	switch {
	case page.HTMLBytes > 2000*1024:
		score -= 40
	case page.HTMLBytes > 1000*1024:
		score -= 25
	case page.HTMLBytes > 500*1024:
		score -= 10
	}

	switch {
	case page.LoadTime > 3*time.Second:
		score -= 30
	case page.LoadTime > 1500*time.Millisecond:
		score -= 15
	case page.LoadTime > 600*time.Millisecond:
		score -= 5
	}

	if page.Images > 30 {
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	return score, nil
}

// AuthorityResult compares a page's synthetic authority against an optional
// competitor.
type AuthorityResult struct {
	YourAuthority       int    `json:"your_authority"`
	CompetitorAuthority *int   `json:"competitor_authority,omitempty"`
	Winner              string `json:"winner,omitempty"`
}

// AuthorityAnalyzer estimates page authority, optionally against a
// competitor page.
type AuthorityAnalyzer interface {
	Analyze(ctx context.Context, page *Page, competitor *Page) (AuthorityResult, error)
}

// HeuristicAuthority derives authority from the link profile.
type HeuristicAuthority struct{}

func (HeuristicAuthority) Analyze(ctx context.Context, page *Page, competitor *Page) (AuthorityResult, error) {
	yours := linkAuthority(page)
	result := AuthorityResult{YourAuthority: yours}

	if competitor != nil {
		theirs := linkAuthority(competitor)
		result.CompetitorAuthority = &theirs
		switch {
		case yours > theirs+2:
			result.Winner = "you"
		case theirs > yours+2:
			result.Winner = "competitor"
		default:
			result.Winner = "tie"
		}
	}

	return result, nil
}

func linkAuthority(page *Page) int {
	links := page.InternalLinks + page.ExternalLinks
	authority := int(float64(links) * 1.2)
	if authority > 100 {
		authority = 100
	}
	return authority
}

// CompetitorFinder discovers likely competitor URLs for a scanned page.
type CompetitorFinder interface {
	Find(ctx context.Context, page *Page) ([]string, error)
}

// KeywordCheck reports whether a keyword appears in the page's key zones.
type KeywordCheck struct {
	Keyword string `json:"keyword"`
	InTitle bool   `json:"in_title"`
	InH1    bool   `json:"in_h1"`
	InBody  bool   `json:"in_body"`
	Count   int    `json:"count"`
}

// KeywordPresence checks where each keyword appears on the page.
func KeywordPresence(page *Page, keywords []string) []KeywordCheck {
	title := strings.ToLower(page.Title)
	h1 := strings.ToLower(strings.Join(page.H1s, " "))
	body := strings.ToLower(page.Text)

	checks := make([]KeywordCheck, 0, len(keywords))
	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		checks = append(checks, KeywordCheck{
			Keyword: keyword,
			InTitle: strings.Contains(title, kw),
			InH1:    strings.Contains(h1, kw),
			InBody:  strings.Contains(body, kw),
			Count:   strings.Count(body, kw),
		})
	}
	return checks
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "have": {}, "more": {}, "will": {}, "they": {},
	"what": {}, "when": {}, "our": {}, "how": {}, "its": {}, "into": {},
}

// TopKeywords extracts the most frequent meaningful tokens from the page
// body, title terms weighted first on ties.
func TopKeywords(page *Page, n int) []string {
	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(page.Text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]{}")
		if len(word) < 4 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
	}

	title := strings.ToLower(page.Title)
	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		inTitleI := strings.Contains(title, words[i])
		inTitleJ := strings.Contains(title, words[j])
		if inTitleI != inTitleJ {
			return inTitleI
		}
		return words[i] < words[j]
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}
