package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/retrieval"
	"github.com/lucamori/seo-agent/pkg/scanstore"
	"github.com/lucamori/seo-agent/pkg/seo"
)

// Generator is the provider surface the orchestrator generates with.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// ContextRetriever builds retrieval context for AI stages.
type ContextRetriever interface {
	Query(ctx context.Context, text string, collections []string, topK int) ([]retrieval.Result, error)
}

// Persister stores the finished scan. Failures are reported but never fail
// the scan itself.
type Persister interface {
	Save(ctx context.Context, rec scanstore.Record) error
}

// Request selects what to scan. CompetitorURL and Keywords are optional:
// a competitor page turns the authority stage into a comparison, and seed
// keywords replace automatic extraction in the keywords stage.
type Request struct {
	URL           string   `json:"url"`
	Mode          Mode     `json:"mode"`
	CompetitorURL string   `json:"competitor_url,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// Result accumulates everything the stages produce; it is the payload of the
// final done event and the source of the persisted record.
type Result struct {
	ScanID      string               `json:"scan_id"`
	URL         string               `json:"url"`
	Mode        Mode                 `json:"mode"`
	Page        *seo.Page            `json:"page,omitempty"`
	Report      *seo.Report          `json:"report,omitempty"`
	Performance *int                 `json:"performance,omitempty"`
	Authority   *seo.AuthorityResult `json:"authority,omitempty"`
	Keywords    []string             `json:"keywords,omitempty"`
	Competitors []string             `json:"competitors,omitempty"`
	Sections    map[string]string    `json:"sections,omitempty"`

	issues        []seo.Issue
	competitorURL string
	seedKeywords  []string
}

// Orchestrator drives the fixed scan pipeline and emits progress events.
type Orchestrator struct {
	generator   Generator
	retriever   ContextRetriever
	scraper     seo.Scraper
	performance seo.PerformanceAnalyzer
	authority   seo.AuthorityAnalyzer
	competitors seo.CompetitorFinder
	persister   Persister
	topK        int
	logger      *slog.Logger
}

type Options struct {
	Generator   Generator
	Retriever   ContextRetriever
	Scraper     seo.Scraper
	Performance seo.PerformanceAnalyzer
	Authority   seo.AuthorityAnalyzer
	Competitors seo.CompetitorFinder
	Persister   Persister
	ContextTopK int
	Logger      *slog.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		generator:   opts.Generator,
		retriever:   opts.Retriever,
		scraper:     opts.Scraper,
		performance: opts.Performance,
		authority:   opts.Authority,
		competitors: opts.Competitors,
		persister:   opts.Persister,
		topK:        opts.ContextTopK,
		logger:      opts.Logger,
	}
	if o.scraper == nil {
		o.scraper = seo.NewHTTPScraper(0)
	}
	if o.performance == nil {
		o.performance = seo.HeuristicPerformance{}
	}
	if o.authority == nil {
		o.authority = seo.HeuristicAuthority{}
	}
	if o.competitors == nil {
		o.competitors = &providerCompetitors{generator: opts.Generator}
	}
	if o.topK <= 0 {
		o.topK = 5
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run executes the stages for the mode, emitting stage events as it goes.
func (o *Orchestrator) Run(ctx context.Context, url string, mode Mode) events.Stream {
	return o.RunScan(ctx, Request{URL: url, Mode: mode})
}

// RunScan executes the stages for the request, emitting stage events as it
// goes. The returned stream is lazy and single-use; the consumer ceasing to
// pull, or ctx being cancelled, stops the pipeline at the next stage boundary
// with nothing persisted.
func (o *Orchestrator) RunScan(ctx context.Context, req Request) events.Stream {
	return func(yield func(events.Event, error) bool) {
		res := &Result{
			ScanID:        uuid.New().String(),
			URL:           req.URL,
			Mode:          req.Mode,
			Sections:      make(map[string]string),
			competitorURL: req.CompetitorURL,
			seedKeywords:  req.Keywords,
		}

		aborted := false
		emit := func(ev events.Event) bool {
			if aborted {
				return false
			}
			if !yield(ev, nil) {
				aborted = true
				return false
			}
			return true
		}

		o.logger.Info("Starting scan", "scan_id", res.ScanID, "url", req.URL, "mode", req.Mode)

		for _, stage := range Stages(req.Mode) {
			if ctx.Err() != nil {
				emit(events.Done(events.StatusStopped, nil))
				return
			}
			if !emit(events.StageStarted(stage)) {
				return
			}

			payload, err := o.runStage(ctx, stage, res, emit)
			if aborted {
				return
			}
			if err != nil {
				kind := classify(err)
				if terminalStage(stage) {
					emit(events.ErrorAt(stage, kind, err.Error()))
					emit(events.Done(events.StatusFailed, res))
					return
				}
				// Independent stage: report and keep going.
				o.logger.Warn("Stage failed", "scan_id", res.ScanID, "stage", stage, "error", err)
				emit(events.ErrorAt(stage, kind, err.Error()))
				continue
			}

			if !emit(events.StageCompleted(stage, payload)) {
				return
			}
		}

		if ctx.Err() != nil {
			emit(events.Done(events.StatusStopped, nil))
			return
		}

		o.persist(ctx, res, emit)
		emit(events.Done(events.StatusCompleted, res))
	}
}

func terminalStage(stage string) bool {
	return stage == StageScraping || stage == StageDetecting
}

func classify(err error) events.Kind {
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		return events.KindProviderUnavailable
	case errors.Is(err, llm.ErrUpstream):
		return events.KindUpstreamError
	case errors.Is(err, errScrape):
		return events.KindScrapeFailed
	default:
		return events.KindInternal
	}
}

var errScrape = errors.New("scrape failed")

func (o *Orchestrator) runStage(ctx context.Context, stage string, res *Result, emit func(events.Event) bool) (any, error) {
	switch stage {
	case StageScraping:
		page, err := o.scraper.Scrape(ctx, res.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errScrape, err)
		}
		res.Page = page
		return page, nil

	case StageDetecting:
		if res.Page == nil {
			return nil, fmt.Errorf("%w: no page data", errScrape)
		}
		res.issues = seo.Detect(res.Page)
		return res.issues, nil

	case StageScoring:
		report := seo.Score(res.issues, res.Performance)
		res.Report = &report
		res.Sections["overview"] = overviewSection(res.Page, report)
		res.Sections["errors"] = issuesSection(report.Issues)
		res.Sections["technical"] = technicalSection(report.Issues)
		return report, nil

	case StagePerformance:
		score, err := o.performance.Analyze(ctx, res.Page)
		if err != nil {
			return nil, err
		}
		res.Performance = &score
		// Fold the measured score back into the report.
		report := seo.Score(res.Report.Issues, res.Performance)
		res.Report = &report
		res.Sections["performance"] = fmt.Sprintf("Performance score for %s: %d/100.", res.URL, score)
		return score, nil

	case StageAuthority:
		var competitor *seo.Page
		if res.competitorURL != "" {
			page, err := o.scraper.Scrape(ctx, res.competitorURL)
			if err != nil {
				// Comparison is optional; fall back to a solo estimate.
				o.logger.Warn("Competitor scrape failed",
					"scan_id", res.ScanID, "competitor_url", res.competitorURL, "error", err)
			} else {
				competitor = page
			}
		}
		authority, err := o.authority.Analyze(ctx, res.Page, competitor)
		if err != nil {
			return nil, err
		}
		res.Authority = &authority
		section := fmt.Sprintf("Estimated authority for %s: %d/100.", res.URL, authority.YourAuthority)
		if authority.CompetitorAuthority != nil {
			section += fmt.Sprintf(" Competitor %s: %d/100, winner: %s.",
				res.competitorURL, *authority.CompetitorAuthority, authority.Winner)
		}
		res.Sections["authority"] = section
		return authority, nil

	case StageFixes:
		text, err := o.generateSection(ctx, stage, fixesPrompt(res.Page, res.Report.Issues), res, emit)
		if err != nil {
			return nil, err
		}
		res.Sections["autofix"] = text
		return text, nil

	case StageRoadmap:
		text, err := o.generateSection(ctx, stage, roadmapPrompt(res.Page, *res.Report), res, emit)
		if err != nil {
			return nil, err
		}
		res.Sections["roadmap"] = text
		return text, nil

	case StageKeywords:
		keywords := res.seedKeywords
		if len(keywords) == 0 {
			keywords = seo.TopKeywords(res.Page, 10)
		}
		res.Keywords = keywords
		checks := seo.KeywordPresence(res.Page, keywords)
		if len(keywords) > 0 {
			res.Sections["keywords"] = "Top keywords: " + strings.Join(keywords, ", ")
		}
		return checks, nil

	case StageCompetitors:
		competitors, err := o.competitors.Find(ctx, res.Page)
		if err != nil {
			return nil, err
		}
		res.Competitors = competitors
		if len(competitors) > 0 {
			res.Sections["competitors"] = "Likely competitors: " + strings.Join(competitors, ", ")
		}
		return competitors, nil

	case StageStrategy:
		text, err := o.generateSection(ctx, stage, strategyPrompt(res.Page, *res.Report, res.Competitors), res, emit)
		if err != nil {
			return nil, err
		}
		res.Sections["strategy"] = text
		return text, nil

	default:
		return nil, fmt.Errorf("unknown stage %s", stage)
	}
}

// generateSection runs one retrieval-augmented generation call. Retrieval
// failing degrades to an empty context with a non-fatal error event.
func (o *Orchestrator) generateSection(ctx context.Context, stage, prompt string, res *Result, emit func(events.Event) bool) (string, error) {
	var contextLines []string
	if o.retriever != nil {
		query := stage + " " + res.Page.Title
		results, err := o.retriever.Query(ctx, query, nil, o.topK)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			o.logger.Warn("Retrieval unavailable, generating without context",
				"scan_id", res.ScanID, "stage", stage, "error", err)
			emit(events.ErrorAt(stage, events.KindRetrievalUnavailable, err.Error()))
		} else {
			contextLines = retrieval.BuildContext(results)
		}
	}

	return o.generator.Generate(ctx, llm.Request{
		System:  analystSystemPrompt,
		Prompt:  prompt,
		Context: contextLines,
	})
}

func (o *Orchestrator) persist(ctx context.Context, res *Result, emit func(events.Event) bool) {
	if o.persister == nil || res.Report == nil {
		return
	}

	rec := scanstore.Record{
		ScanID:    res.ScanID,
		URL:       res.URL,
		Domain:    res.Page.Domain,
		ScannedAt: time.Now().UTC(),
		Score:     res.Report.FinalScore,
		Sections:  res.Sections,
	}
	if err := o.persister.Save(ctx, rec); err != nil {
		o.logger.Error("Failed to persist scan", "scan_id", res.ScanID, "error", err)
		emit(events.Error(events.KindPersistenceFailure, err.Error()))
	}
}

// NewProviderCompetitors returns a CompetitorFinder that asks the active
// model for likely competitors.
func NewProviderCompetitors(g Generator) seo.CompetitorFinder {
	return &providerCompetitors{generator: g}
}

type providerCompetitors struct {
	generator Generator
}

func (p *providerCompetitors) Find(ctx context.Context, page *seo.Page) ([]string, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", llm.ErrProviderUnavailable)
	}
	raw, err := p.generator.Generate(ctx, llm.Request{
		System:   analystSystemPrompt,
		Prompt:   competitorsPrompt(page),
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	return parseCompetitors(raw)
}
