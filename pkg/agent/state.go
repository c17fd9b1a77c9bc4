// Package agent implements the autonomous observe-decide-act loop over the
// same primitives the workflow stages use. The loop is an explicit state
// machine: every provider call is a visible step, and the circuit breaker is
// a pure function of the accumulated state.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Action string

const (
	ActionScrape          Action = "scrape"
	ActionDetect          Action = "detect"
	ActionFetchCompetitor Action = "fetch_competitor"
	ActionGenerateFix     Action = "generate_fix"
	ActionGenerateReport  Action = "generate_report"
	ActionStop            Action = "stop"
)

var actionDescriptions = map[Action]string{
	ActionScrape:          "Fetch and parse the target URL (title, meta, headings, content, images, links)",
	ActionDetect:          "Analyze the scraped page for on-page SEO issues (requires scrape first)",
	ActionFetchCompetitor: "Discover likely competitors for the page (requires scrape first)",
	ActionGenerateFix:     "Generate concrete fixes for detected issues (requires detect first)",
	ActionGenerateReport:  "Score the page and write the final report (requires detect first)",
	ActionStop:            "Finish the analysis with the findings collected so far",
}

// Decision is the model's answer to "what next".
type Decision struct {
	Reasoning  string `json:"reasoning"`
	NextAction Action `json:"next_action"`
	StopAfter  bool   `json:"stop_after"`
	Confidence int    `json:"confidence"`
}

// Step records one executed iteration.
type Step struct {
	Iteration int    `json:"iteration"`
	Action    Action `json:"action"`
	Reasoning string `json:"reasoning,omitempty"`
	Result    string `json:"result,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// State is the agent's accumulated run state. It is owned by exactly one
// in-flight run and never shared.
type State struct {
	URL                 string         `json:"url"`
	Iteration           int            `json:"iteration"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	History             []Step         `json:"history"`
	Findings            map[string]any `json:"findings"`
}

func NewState(url string) *State {
	return &State{
		URL:      url,
		Findings: make(map[string]any),
	}
}

// RecordSuccess appends a completed step and resets the failure streak.
func (s *State) RecordSuccess(step Step) {
	s.History = append(s.History, step)
	s.ConsecutiveFailures = 0
}

// RecordFailure appends a failed step and extends the failure streak.
func (s *State) RecordFailure(step Step) {
	step.Failed = true
	s.History = append(s.History, step)
	s.ConsecutiveFailures++
}

// BreakerTripped reports whether the consecutive-failure breaker has tripped.
func (s *State) BreakerTripped(threshold int) bool {
	return threshold > 0 && s.ConsecutiveFailures >= threshold
}

// CompletedActions lists the actions executed so far, for the decision prompt.
func (s *State) CompletedActions() []string {
	out := make([]string, 0, len(s.History))
	for _, step := range s.History {
		marker := string(step.Action)
		if step.Failed {
			marker += " (failed)"
		}
		out = append(out, marker)
	}
	return out
}

// Observation summarizes the current findings for the decision prompt.
func (s *State) Observation() string {
	if len(s.Findings) == 0 {
		return "nothing collected yet"
	}
	keys := make([]string, 0, len(s.Findings))
	for key := range s.Findings {
		keys = append(keys, key)
	}
	return "collected: " + strings.Join(keys, ", ")
}

// parseDecision decodes the model's JSON decision, tolerating code fences.
func parseDecision(raw string) (Decision, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var decision Decision
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return Decision{}, fmt.Errorf("failed to parse decision: %w", err)
	}

	decision.NextAction = Action(strings.ToLower(strings.TrimSpace(string(decision.NextAction))))
	if _, known := actionDescriptions[decision.NextAction]; !known {
		return Decision{}, fmt.Errorf("unknown action %q", decision.NextAction)
	}
	return decision, nil
}
