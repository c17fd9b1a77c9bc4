package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/seo"
	"github.com/lucamori/seo-agent/pkg/workflow"
)

// Agent drives the adaptive analysis loop. Both limits are configuration:
// MaxIterations caps total loop turns, FailureThreshold caps consecutive
// action failures. Hitting either trips the breaker, which terminates the
// run with a status distinct from a normal stop.
type Agent struct {
	generator        workflow.Generator
	scraper          seo.Scraper
	competitors      seo.CompetitorFinder
	maxIterations    int
	failureThreshold int
	logger           *slog.Logger
}

type Options struct {
	Generator        workflow.Generator
	Scraper          seo.Scraper
	Competitors      seo.CompetitorFinder
	MaxIterations    int
	FailureThreshold int
	Logger           *slog.Logger
}

func New(opts Options) *Agent {
	a := &Agent{
		generator:        opts.Generator,
		scraper:          opts.Scraper,
		competitors:      opts.Competitors,
		maxIterations:    opts.MaxIterations,
		failureThreshold: opts.FailureThreshold,
		logger:           opts.Logger,
	}
	if a.scraper == nil {
		a.scraper = seo.NewHTTPScraper(0)
	}
	if a.competitors == nil {
		a.competitors = workflow.NewProviderCompetitors(opts.Generator)
	}
	if a.maxIterations <= 0 {
		a.maxIterations = 8
	}
	if a.failureThreshold <= 0 {
		a.failureThreshold = 3
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Run executes the observe-decide-act loop for one URL. Termination statuses:
// completed (model chose stop), breaker_tripped (failure streak or iteration
// cap), stopped (caller cancelled).
func (a *Agent) Run(ctx context.Context, url string) events.Stream {
	return func(yield func(events.Event, error) bool) {
		state := NewState(url)

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

		a.logger.Info("Starting autonomous analysis", "url", url, "max_iterations", a.maxIterations)

		for state.Iteration < a.maxIterations {
			if ctx.Err() != nil {
				emit(events.Done(events.StatusStopped, nil))
				return
			}
			state.Iteration++

			decision, err := a.decide(ctx, state)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					emit(events.Done(events.StatusStopped, nil))
					return
				}
				state.RecordFailure(Step{Iteration: state.Iteration, Action: "decide", Error: err.Error()})
				if !emit(events.ErrorAt("decide", classify(err), err.Error())) {
					return
				}
				if state.BreakerTripped(a.failureThreshold) {
					a.trip(state, emit, fmt.Sprintf("%d consecutive failures", state.ConsecutiveFailures))
					return
				}
				continue
			}

			if !emit(events.StageCompleted("decision", decision)) {
				return
			}

			if decision.NextAction == ActionStop {
				a.logger.Info("Agent decided to stop", "iteration", state.Iteration)
				emit(events.Done(events.StatusCompleted, state))
				return
			}

			if !emit(events.StageStarted(string(decision.NextAction))) {
				return
			}

			result, err := a.execute(ctx, state, decision.NextAction)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					emit(events.Done(events.StatusStopped, nil))
					return
				}
				a.logger.Warn("Action failed",
					"iteration", state.Iteration, "action", decision.NextAction, "error", err)
				state.RecordFailure(Step{
					Iteration: state.Iteration,
					Action:    decision.NextAction,
					Reasoning: decision.Reasoning,
					Error:     err.Error(),
				})
				if !emit(events.ErrorAt(string(decision.NextAction), classify(err), err.Error())) {
					return
				}
				if state.BreakerTripped(a.failureThreshold) {
					a.trip(state, emit, fmt.Sprintf("%d consecutive failures", state.ConsecutiveFailures))
					return
				}
				continue
			}

			state.RecordSuccess(Step{
				Iteration: state.Iteration,
				Action:    decision.NextAction,
				Reasoning: decision.Reasoning,
				Result:    summarize(result),
			})
			if !emit(events.StageCompleted(string(decision.NextAction), result)) {
				return
			}

			if decision.StopAfter {
				a.logger.Info("Agent set stop_after, terminating loop", "iteration", state.Iteration)
				emit(events.Done(events.StatusCompleted, state))
				return
			}
		}

		if ctx.Err() != nil {
			emit(events.Done(events.StatusStopped, nil))
			return
		}
		a.trip(state, emit, fmt.Sprintf("iteration cap of %d reached", a.maxIterations))
	}
}

func (a *Agent) trip(state *State, emit func(events.Event) bool, reason string) {
	a.logger.Warn("Circuit breaker tripped", "url", state.URL, "reason", reason)
	emit(events.Error(events.KindCircuitBreaker, reason))
	emit(events.Done(events.StatusBreakerTripped, state))
}

func (a *Agent) decide(ctx context.Context, state *State) (Decision, error) {
	raw, err := a.generator.Generate(ctx, llm.Request{
		System:   decisionSystemPrompt,
		Prompt:   decisionPrompt(state, a.maxIterations),
		JSONMode: true,
	})
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(raw)
}

func (a *Agent) execute(ctx context.Context, state *State, action Action) (any, error) {
	switch action {
	case ActionScrape:
		page, err := a.scraper.Scrape(ctx, state.URL)
		if err != nil {
			return nil, err
		}
		state.Findings["page"] = page
		return page, nil

	case ActionDetect:
		page, err := a.page(state)
		if err != nil {
			return nil, err
		}
		issues := seo.Detect(page)
		state.Findings["issues"] = issues
		return issues, nil

	case ActionFetchCompetitor:
		page, err := a.page(state)
		if err != nil {
			return nil, err
		}
		competitors, err := a.competitors.Find(ctx, page)
		if err != nil {
			return nil, err
		}
		state.Findings["competitors"] = competitors
		return competitors, nil

	case ActionGenerateFix:
		issues, err := a.issues(state)
		if err != nil {
			return nil, err
		}
		text, err := a.generator.Generate(ctx, llm.Request{
			System: decisionSystemPrompt,
			Prompt: fixPrompt(state.URL, issues),
		})
		if err != nil {
			return nil, err
		}
		state.Findings["fixes"] = text
		return text, nil

	case ActionGenerateReport:
		issues, err := a.issues(state)
		if err != nil {
			return nil, err
		}
		report := seo.Score(issues, nil)
		state.Findings["score"] = report.FinalScore

		text, err := a.generator.Generate(ctx, llm.Request{
			System: decisionSystemPrompt,
			Prompt: reportPrompt(state.URL, report),
		})
		if err != nil {
			return nil, err
		}
		state.Findings["report"] = text
		return map[string]any{"score": report.FinalScore, "report": text}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func (a *Agent) page(state *State) (*seo.Page, error) {
	page, ok := state.Findings["page"].(*seo.Page)
	if !ok {
		return nil, fmt.Errorf("no page data: run scrape first")
	}
	return page, nil
}

func (a *Agent) issues(state *State) ([]seo.Issue, error) {
	issues, ok := state.Findings["issues"].([]seo.Issue)
	if !ok {
		return nil, fmt.Errorf("no issue data: run detect first")
	}
	return issues, nil
}

func classify(err error) events.Kind {
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		return events.KindProviderUnavailable
	case errors.Is(err, llm.ErrUpstream):
		return events.KindUpstreamError
	default:
		return events.KindInternal
	}
}

func summarize(result any) string {
	switch v := result.(type) {
	case *seo.Page:
		return fmt.Sprintf("scraped %q (%d words)", v.Title, v.WordCount)
	case []seo.Issue:
		return fmt.Sprintf("%d issues detected", len(v))
	case []string:
		return strings.Join(v, ", ")
	case string:
		if len(v) > 120 {
			return v[:120] + "..."
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
