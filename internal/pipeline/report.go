package pipeline

import "time"

// Per-symbol terminal outcomes. A run is complete when every symbol has
// reached one of these.
const (
	OutcomeCommitted          = "committed"
	OutcomePartiallyCommitted = "partially_committed"
	OutcomeSkipped            = "skipped"
	OutcomeFailed             = "failed"
)

// Stage names as recorded in CompletedStages and metrics labels.
const (
	StageFetch     = "fetch"
	StageTransform = "transform"
	StageForecast  = "forecast"
	StageInsight   = "insight"
	StageSentiment = "sentiment"
	StageCommit    = "commit"
)

// SymbolResult is one symbol's terminal state within a run.
type SymbolResult struct {
	Symbol          string        `json:"symbol"`
	Outcome         string        `json:"outcome"`
	CompletedStages []string      `json:"completed_stages,omitempty"`
	SkipReason      string        `json:"skip_reason,omitempty"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
}

// RunReport is the record of one orchestrator invocation. Observability
// only: nothing branches on it.
type RunReport struct {
	RunID      string         `json:"run_id"`
	AsOf       time.Time      `json:"as_of"`
	Forced     bool           `json:"forced"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SymbolResult `json:"results"`
}

// Counts tallies results per outcome.
func (r *RunReport) Counts() map[string]int {
	counts := make(map[string]int)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}
