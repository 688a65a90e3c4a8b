package insight

import (
	"fmt"
	"time"
)

// Source identifies how the commentary was produced.
const (
	SourceOpenAI = "openai"
	SourceLocal  = "local"
)

// Artifact is one generated commentary. Commentary is untrusted free text:
// it is displayed, never parsed for control decisions.
type Artifact struct {
	Symbol      string    `json:"symbol"`
	AsOf        time.Time `json:"as_of"`
	Commentary  string    `json:"commentary"`
	Source      string    `json:"source"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// InsightError wraps a language-model service failure. The orchestrator
// treats it as a partial-commit condition: forecast and feature artifacts
// are still stored.
type InsightError struct {
	Symbol string
	Err    error
}

func (e *InsightError) Error() string {
	return fmt.Sprintf("insight generation failed for %s: %v", e.Symbol, e.Err)
}

func (e *InsightError) Unwrap() error {
	return e.Err
}
