package insight

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// promptRows bounds how many recent feature rows enter the prompt.
const promptRows = 5

// promptHeadlines bounds how many headlines enter the prompt.
const promptHeadlines = 5

// rangeRows is the trailing window for the period high/low prompt line.
const rangeRows = 60

// Generator produces dashboard commentary for one symbol. With an API key
// configured it calls the language-model service; without one it renders a
// deterministic local template. A configured service that fails signals
// InsightError rather than silently falling back, so the run is reported as
// partially committed.
type Generator struct {
	cfg    config.OpenAIConfig
	client *openAIClient
	log    *logger.Logger
}

// NewGenerator creates a generator. The remote client is only constructed
// when an API key is present.
func NewGenerator(cfg config.OpenAIConfig, log *logger.Logger) *Generator {
	g := &Generator{
		cfg: cfg,
		log: log.WithField("component", "insight"),
	}
	if cfg.APIKey != "" {
		g.client = newOpenAIClient(cfg)
	}
	return g
}

// Remote reports whether a language-model service is configured.
func (g *Generator) Remote() bool {
	return g.client != nil
}

// Summarize generates commentary from the feature set, the forecast (nil
// when that stage failed) and recent headlines. The prompt is bounded: only
// the trailing rows and a capped headline list are included regardless of
// input size.
func (g *Generator) Summarize(ctx context.Context, fs *features.FeatureSet, fc *forecast.Artifact, headlines []string, asOf time.Time) (*Artifact, error) {
	if len(fs.Rows) == 0 {
		return nil, &InsightError{Symbol: fs.Symbol, Err: fmt.Errorf("empty feature set")}
	}

	if g.client == nil {
		return &Artifact{
			Symbol:      fs.Symbol,
			AsOf:        asOf,
			Commentary:  localInsight(fs, fc),
			Source:      SourceLocal,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	text, err := g.client.complete(ctx, buildPrompt(fs, fc, headlines))
	if err != nil {
		return nil, &InsightError{Symbol: fs.Symbol, Err: err}
	}

	return &Artifact{
		Symbol:      fs.Symbol,
		AsOf:        asOf,
		Commentary:  text,
		Source:      SourceOpenAI,
		Model:       g.cfg.Model,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildPrompt assembles the bounded analysis request.
func buildPrompt(fs *features.FeatureSet, fc *forecast.Artifact, headlines []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following recent stock data for %s:\n\n", fs.Symbol)
	b.WriteString("date        close      return%    ma         rsi\n")
	for _, row := range fs.Tail(promptRows) {
		fmt.Fprintf(&b, "%s  %-9.2f  %-9.2f  %-9.2f  %.1f\n",
			row.Timestamp.Format("2006-01-02"), row.Close, row.ReturnPct*100, row.MA, row.RSI)
	}

	last := fs.LastRow()
	maTrend := "below"
	if last.Close >= last.MA {
		maTrend = "above"
	}
	high, low := periodRange(fs)
	fmt.Fprintf(&b, "\nPrice is %s its moving average. Period high %.2f, low %.2f.\n", maTrend, high, low)

	if fc != nil {
		fmt.Fprintf(&b, "\nModel forecast: next close %.2f (%+.2f%%, %s).\n",
			fc.PredictedClose, fc.PredictedChangePct, fc.Direction)
	}

	if len(headlines) > 0 {
		b.WriteString("\nRecent headlines:\n")
		n := len(headlines)
		if n > promptHeadlines {
			n = promptHeadlines
		}
		for _, h := range headlines[:n] {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString("\nProvide a concise, 1-sentence financial insight suitable for a dashboard. ")
	b.WriteString("Focus on trend, volatility, and volume. Do not use markdown.")
	return b.String()
}

// periodRange returns the high and low close over the trailing window used
// for support/resistance context in prompts.
func periodRange(fs *features.FeatureSet) (high, low float64) {
	rows := fs.Tail(rangeRows)
	high, low = rows[0].Close, rows[0].Close
	for _, r := range rows[1:] {
		if r.Close > high {
			high = r.Close
		}
		if r.Close < low {
			low = r.Close
		}
	}
	return high, low
}

// localInsight renders the template commentary used when no language-model
// service is configured. Deterministic for a given feature set and forecast.
func localInsight(fs *features.FeatureSet, fc *forecast.Artifact) string {
	last := fs.LastRow()
	dailyReturn := last.ReturnPct * 100

	trend := "bearish"
	if dailyReturn > 0 {
		trend = "bullish"
	}

	volatility := last.Volatility * 100
	volDesc := "stable"
	if volatility > 2.0 {
		volDesc = "high"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s closed at $%.2f, showing a %s move of %.2f%%. ", fs.Symbol, last.Close, trend, dailyReturn)
	fmt.Fprintf(&b, "Volatility remains %s (%.2f%%). ", volDesc, volatility)
	if fc != nil && !math.IsNaN(fc.PredictedClose) {
		fmt.Fprintf(&b, "The model projects a next close of $%.2f (%s). ", fc.PredictedClose, fc.Direction)
	}
	fmt.Fprintf(&b, "Market sentiment appears %s based on recent price action.", trend)
	return b.String()
}
