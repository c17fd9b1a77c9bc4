// Package seo provides the page scraping, issue detection and scoring
// collaborators the orchestrator and agent drive. The checks here are compact
// pattern checks over parsed HTML; everything interesting happens in how
// their output feeds prompts and reports.
package seo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Page is the structured result of scraping one URL.
type Page struct {
	URL             string        `json:"url"`
	Domain          string        `json:"domain"`
	StatusCode      int           `json:"status_code"`
	HTTPS           bool          `json:"https"`
	Title           string        `json:"title"`
	MetaDescription string        `json:"meta_description"`
	Canonical       string        `json:"canonical"`
	H1s             []string      `json:"h1s"`
	H2s             []string      `json:"h2s"`
	Images          int           `json:"images"`
	ImagesNoAlt     int           `json:"images_no_alt"`
	InternalLinks   int           `json:"internal_links"`
	ExternalLinks   int           `json:"external_links"`
	WordCount       int           `json:"word_count"`
	Text            string        `json:"-"`
	HTMLBytes       int           `json:"html_bytes"`
	LoadTime        time.Duration `json:"load_time"`
}

// Scraper fetches and parses a URL into a Page.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*Page, error)
}

// HTTPScraper is the default Scraper over net/http.
type HTTPScraper struct {
	client    *http.Client
	userAgent string
}

func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: "seo-agent/1.0 (+https://github.com/lucamori/seo-agent)",
	}
}

// Scrape fetches the URL and extracts the on-page signals the detector and
// the AI stages consume.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	// 2 MB is plenty for on-page signals and keeps huge pages from
	// dominating memory.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	loadTime := time.Since(start)

	page := &Page{
		URL:        rawURL,
		Domain:     parsed.Hostname(),
		StatusCode: resp.StatusCode,
		HTTPS:      parsed.Scheme == "https",
		HTMLBytes:  len(body),
		LoadTime:   loadTime,
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var textParts []string
	walk(doc, page, parsed.Hostname(), &textParts)
	page.Text = strings.Join(textParts, " ")
	page.WordCount = len(strings.Fields(page.Text))

	return page, nil
}

func walk(n *html.Node, page *Page, host string, textParts *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if page.Title == "" {
				page.Title = strings.TrimSpace(textContent(n))
			}
		case "meta":
			if strings.EqualFold(attr(n, "name"), "description") {
				page.MetaDescription = strings.TrimSpace(attr(n, "content"))
			}
		case "link":
			if strings.EqualFold(attr(n, "rel"), "canonical") {
				page.Canonical = strings.TrimSpace(attr(n, "href"))
			}
		case "h1":
			page.H1s = append(page.H1s, strings.TrimSpace(textContent(n)))
		case "h2":
			page.H2s = append(page.H2s, strings.TrimSpace(textContent(n)))
		case "img":
			page.Images++
			if strings.TrimSpace(attr(n, "alt")) == "" {
				page.ImagesNoAlt++
			}
		case "a":
			href := attr(n, "href")
			if href != "" && !strings.HasPrefix(href, "#") {
				if target, err := url.Parse(href); err == nil {
					if target.Host == "" || target.Hostname() == host {
						page.InternalLinks++
					} else {
						page.ExternalLinks++
					}
				}
			}
		case "p", "li", "td", "figcaption", "blockquote":
			if text := strings.TrimSpace(textContent(n)); text != "" {
				*textParts = append(*textParts, text)
			}
			return
		case "script", "style", "noscript":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, page, host, textParts)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
