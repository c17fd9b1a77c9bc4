// Package knowledge holds the curated SEO knowledge base and indexes it into
// the vector store. Document ids are derived from titles, so re-indexing
// upserts in place instead of duplicating rows.
package knowledge

import (
	"crypto/md5"
	"encoding/hex"
)

const (
	CategoryFundamentals = "fundamentals"
	CategoryTechnical    = "technical"
	CategoryContent      = "content"
	CategoryPerformance  = "performance"
	CategorySecurity     = "security"
	CategoryAdvanced     = "advanced"
	CategoryTools        = "tools"
)

// Document is one knowledge base entry.
type Document struct {
	ID       string
	Title    string
	Category string
	Text     string
}

// DocumentID derives the stable id for a knowledge entry from its title.
func DocumentID(title string) string {
	sum := md5.Sum([]byte(title))
	return hex.EncodeToString(sum[:])
}

// Documents returns the full knowledge base corpus with ids populated.
func Documents() []Document {
	docs := corpus
	out := make([]Document, len(docs))
	for i, doc := range docs {
		doc.ID = DocumentID(doc.Title)
		out[i] = doc
	}
	return out
}

var corpus = []Document{
	{
		Title:    "Title tags",
		Category: CategoryFundamentals,
		Text:     "The title tag is the strongest on-page relevance signal. Keep it under 60 characters so it is not truncated in search results, put the primary keyword near the front, and write a unique title for every page. Duplicate or missing titles dilute rankings across the site.",
	},
	{
		Title:    "Meta descriptions",
		Category: CategoryFundamentals,
		Text:     "Meta descriptions do not directly influence rankings but drive click-through rate. Write 150 to 160 characters that summarize the page and include a call to action. Pages without a description get an auto-generated snippet that often reads poorly.",
	},
	{
		Title:    "Heading structure",
		Category: CategoryFundamentals,
		Text:     "Use exactly one h1 per page describing its main topic, then h2 and h3 for sections in order without skipping levels. Search engines use the heading outline to understand page structure, and screen readers depend on it for navigation.",
	},
	{
		Title:    "URL structure",
		Category: CategoryFundamentals,
		Text:     "Short, lowercase, hyphen-separated URLs that describe the content rank and share better than query-string identifiers. Avoid changing URLs once published; when a change is unavoidable, add a 301 redirect from the old address.",
	},
	{
		Title:    "Internal linking",
		Category: CategoryFundamentals,
		Text:     "Internal links distribute authority and help crawlers discover pages. Link related content with descriptive anchor text instead of generic phrases like 'click here'. Orphan pages with no inbound internal links are crawled and ranked poorly.",
	},
	{
		Title:    "Image alt text",
		Category: CategoryFundamentals,
		Text:     "Every meaningful image needs an alt attribute describing what it shows. Alt text is the primary ranking signal for image search and the only content screen readers can convey. Decorative images should carry an empty alt attribute rather than none.",
	},
	{
		Title:    "Keyword research",
		Category: CategoryFundamentals,
		Text:     "Target keywords with real search volume and intent that matches the page. A page should focus on one primary keyword plus close variants; spreading one page across many unrelated terms weakens it for all of them.",
	},
	{
		Title:    "Search intent",
		Category: CategoryFundamentals,
		Text:     "Pages rank when they satisfy the intent behind a query: informational, navigational, commercial, or transactional. Match the content format to the intent; a product page will not rank for a how-to query no matter how well optimized.",
	},
	{
		Title:    "Crawlability and robots.txt",
		Category: CategoryTechnical,
		Text:     "robots.txt controls which paths crawlers may fetch. A misplaced Disallow can remove an entire site from the index. Blocked pages can still appear in results without a snippet, so use noindex rather than robots.txt to keep a page out of the index.",
	},
	{
		Title:    "XML sitemaps",
		Category: CategoryTechnical,
		Text:     "An XML sitemap lists the canonical URLs you want indexed along with their last modification dates. Keep it under 50,000 URLs per file, reference it from robots.txt, and exclude redirected, noindexed, or error pages.",
	},
	{
		Title:    "Canonical tags",
		Category: CategoryTechnical,
		Text:     "rel=canonical tells search engines which URL among duplicates to index. Every indexable page should self-canonicalize. Missing canonicals on parameterized or paginated URLs lead to duplicate content splitting ranking signals.",
	},
	{
		Title:    "HTTPS and mixed content",
		Category: CategorySecurity,
		Text:     "HTTPS is a confirmed ranking signal and browsers flag plain HTTP pages as not secure. Serve the whole site over TLS, redirect HTTP to HTTPS with a 301, and eliminate mixed content where a secure page loads scripts or images over HTTP.",
	},
	{
		Title:    "Status codes and redirects",
		Category: CategoryTechnical,
		Text:     "Use 301 for permanent moves and 302 only for genuinely temporary ones. Redirect chains waste crawl budget and leak authority at each hop, so point old URLs directly at the final destination. Soft 404s, pages that say not found but return 200, confuse indexing.",
	},
	{
		Title:    "Structured data",
		Category: CategoryTechnical,
		Text:     "Schema.org markup in JSON-LD lets search engines show rich results: review stars, FAQs, breadcrumbs, product pricing. Invalid or misleading markup can earn a manual penalty, so validate it and only mark up content visible on the page.",
	},
	{
		Title:    "Mobile-first indexing",
		Category: CategoryTechnical,
		Text:     "Google indexes the mobile version of a page. Content hidden or removed on mobile does not count for rankings. Use responsive design, keep parity between mobile and desktop content, and ensure tap targets and font sizes are usable on small screens.",
	},
	{
		Title:    "JavaScript rendering",
		Category: CategoryTechnical,
		Text:     "Content injected client-side is indexed later and less reliably than server-rendered HTML. Critical content and links should be present in the initial HTML response. Use server-side rendering or prerendering for pages that must rank.",
	},
	{
		Title:    "Hreflang and internationalization",
		Category: CategoryTechnical,
		Text:     "hreflang annotations map language and regional variants of a page so users get the right version. Annotations must be reciprocal; one-way hreflang is ignored. Include a self-reference and an x-default for unmatched locales.",
	},
	{
		Title:    "Crawl budget",
		Category: CategoryTechnical,
		Text:     "Large sites exhaust the crawler's budget on faceted navigation, session parameters, and infinite calendar pages. Consolidate parameter URLs with canonicals, block truly infinite spaces in robots.txt, and keep the internal link graph shallow.",
	},
	{
		Title:    "Content quality",
		Category: CategoryContent,
		Text:     "Helpful, original content that demonstrates first-hand expertise outranks thin aggregation. Pages under roughly 300 words rarely cover a topic well enough to rank. Depth matters more than length; padding a page with filler hurts engagement signals.",
	},
	{
		Title:    "Duplicate content",
		Category: CategoryContent,
		Text:     "Substantially similar pages compete with each other and split link equity. Consolidate duplicates with canonicals or 301s, and rewrite boilerplate product descriptions copied from manufacturers, which rank for no one.",
	},
	{
		Title:    "Content freshness",
		Category: CategoryContent,
		Text:     "Queries with freshness intent favor recently updated pages. Revisit top pages on a schedule: update statistics, replace dead links, and extend sections where the topic has moved on. A visible last-updated date supports click-through.",
	},
	{
		Title:    "Keyword placement",
		Category: CategoryContent,
		Text:     "Place the primary keyword in the title, the h1, the first paragraph, and naturally through the body. Keyword stuffing triggers spam detection; modern ranking models reward covering the topic with related terms and entities instead of repeating one phrase.",
	},
	{
		Title:    "E-E-A-T signals",
		Category: CategoryContent,
		Text:     "Experience, expertise, authoritativeness, and trust weigh heaviest on topics affecting money or health. Show author bios with credentials, cite primary sources, and keep contact and policy pages easy to find.",
	},
	{
		Title:    "Core Web Vitals",
		Category: CategoryPerformance,
		Text:     "Core Web Vitals are the page experience ranking signals: Largest Contentful Paint under 2.5 seconds, Interaction to Next Paint under 200 milliseconds, and Cumulative Layout Shift under 0.1. They are measured from real Chrome users, not lab runs.",
	},
	{
		Title:    "Page speed optimization",
		Category: CategoryPerformance,
		Text:     "Compress and lazy-load images, serve modern formats like WebP or AVIF, minify and defer non-critical JavaScript, and enable text compression. The largest wins usually come from image weight and render-blocking scripts.",
	},
	{
		Title:    "Caching and CDNs",
		Category: CategoryPerformance,
		Text:     "Long-lived cache headers on static assets and a CDN close to users cut load times across the board. Set Cache-Control with immutable fingerprinted filenames so deploys bust caches without short TTLs.",
	},
	{
		Title:    "Server response time",
		Category: CategoryPerformance,
		Text:     "Time to first byte above 600 milliseconds drags every other metric down. Profile slow database queries, add server-side caching for anonymous traffic, and keep redirect chains off the critical path.",
	},
	{
		Title:    "Backlink quality",
		Category: CategoryAdvanced,
		Text:     "A few links from relevant, authoritative sites outweigh thousands from low-quality directories. Anchor text relevance matters, but unnatural exact-match anchor patterns attract spam penalties. Disavow only clearly manipulative links.",
	},
	{
		Title:    "Local SEO",
		Category: CategoryAdvanced,
		Text:     "Local rankings depend on the business profile, consistent name-address-phone citations, and reviews. Embed the address in structured data, and build location pages with genuinely local content rather than templated city-name swaps.",
	},
	{
		Title:    "Competitor analysis",
		Category: CategoryAdvanced,
		Text:     "Compare your pages against the current top results for the target query: their content depth, structure, linking domains, and page experience. The gap analysis tells you whether a page needs better content, better links, or a different intent match.",
	},
	{
		Title:    "SERP features",
		Category: CategoryAdvanced,
		Text:     "Featured snippets, People Also Ask, and AI overviews absorb clicks above the classic results. Win snippets with concise 40 to 60 word answers directly under a question-phrased heading, followed by supporting detail.",
	},
	{
		Title:    "Google Search Console",
		Category: CategoryTools,
		Text:     "Search Console reports the queries a site actually ranks for, indexing coverage, Core Web Vitals from field data, and manual actions. The URL inspection tool shows exactly how Google rendered and indexed a page.",
	},
	{
		Title:    "Log file analysis",
		Category: CategoryTools,
		Text:     "Server logs show what crawlers really fetch: wasted hits on parameters and redirects, sections never crawled, and crawl frequency by template. Log analysis is the only reliable way to diagnose crawl budget problems on large sites.",
	},
	{
		Title:    "Rank tracking",
		Category: CategoryTools,
		Text:     "Track a fixed keyword set per page across locations and devices, and watch trends rather than daily noise. Pair position data with click-through from Search Console to spot titles and snippets worth rewriting.",
	},
}
