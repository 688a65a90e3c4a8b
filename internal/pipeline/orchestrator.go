package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/internal/insight"
	"github.com/YuvrajArora777/Finsight-Clean/internal/marketdata"
	"github.com/YuvrajArora777/Finsight-Clean/internal/news"
	"github.com/YuvrajArora777/Finsight-Clean/internal/store"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/metrics"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/redis"
)

// Orchestrator drives the per-symbol stage sequence
// fetch → transform → {forecast, insight} → commit.
// Failure isolation is per symbol: one symbol's failure never aborts its
// siblings. Only the commit step advances latest pointers.
// ⭐ SSOT: pipeline coordination happens here only
type Orchestrator struct {
	cfg         config.PipelineConfig
	gateway     marketdata.Gateway
	transformer *features.Transformer
	forecaster  *forecast.Forecaster
	insights    *insight.Generator
	news        *news.Scraper // nil when headline sentiment is disabled
	store       store.Store
	metrics     *metrics.Recorder
	limiter     *redis.RateLimiter // nil without redis
	log         *logger.Logger
}

// NewOrchestrator wires the stage components.
func NewOrchestrator(
	cfg config.PipelineConfig,
	gateway marketdata.Gateway,
	transformer *features.Transformer,
	forecaster *forecast.Forecaster,
	insights *insight.Generator,
	newsScraper *news.Scraper,
	st store.Store,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		gateway:     gateway,
		transformer: transformer,
		forecaster:  forecaster,
		insights:    insights,
		news:        newsScraper,
		store:       st,
		metrics:     rec,
		log:         log.WithField("component", "pipeline"),
	}
}

// WithRateLimiter attaches a distributed limiter shared across instances.
// Provider and language-model calls wait on it before each attempt.
func (o *Orchestrator) WithRateLimiter(limiter *redis.RateLimiter) *Orchestrator {
	o.limiter = limiter
	return o
}

// waitLimit blocks on the distributed limit. Limiter failures are logged
// and treated as allowed: redis being down must not stall the pipeline.
func (o *Orchestrator) waitLimit(ctx context.Context, cfg redis.RateLimitConfig) {
	if o.limiter == nil {
		return
	}
	if err := o.limiter.Wait(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		o.log.WithError(err).WithField("limit", cfg.Key).Warn("Rate limiter unavailable, proceeding")
	}
}

// Run processes every configured symbol with bounded parallelism and
// returns when each has reached a terminal state. Safe to invoke
// repeatedly for the same asOf: unchanged symbols are skipped unless
// force is set. Only misconfiguration is fatal to the whole run.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time, force bool) (*RunReport, error) {
	if len(o.cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	report := &RunReport{
		RunID:     uuid.New().String(),
		AsOf:      asOf,
		Forced:    force,
		StartedAt: time.Now().UTC(),
		Results:   make([]SymbolResult, len(o.cfg.Symbols)),
	}

	o.log.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"as_of":   asOf.Format(time.RFC3339),
		"symbols": len(o.cfg.Symbols),
		"force":   force,
	}).Info("Starting pipeline run")

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = o.runSymbol(ctx, o.cfg.Symbols[i], asOf, force)
			}
		}()
	}
	for i := range o.cfg.Symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.FinishedAt = time.Now().UTC()

	for _, res := range report.Results {
		if o.metrics != nil {
			o.metrics.RecordRun(res.Outcome)
		}
	}

	if err := o.persistReport(ctx, report); err != nil {
		o.log.WithError(err).Error("Failed to persist run report")
	}

	o.log.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"duration": report.FinishedAt.Sub(report.StartedAt).Seconds(),
		"outcomes": report.Counts(),
	}).Info("Pipeline run completed")

	return report, nil
}

// runSymbol executes the stage sequence for one symbol and returns its
// terminal state. Never panics the worker; every error becomes an outcome.
func (o *Orchestrator) runSymbol(ctx context.Context, symbol string, asOf time.Time, force bool) SymbolResult {
	start := time.Now()
	res := SymbolResult{Symbol: symbol}
	log := o.log.WithField("symbol", symbol)

	defer func() {
		res.Duration = time.Since(start)
	}()

	// Fetch
	series, err := o.fetchWithRetry(ctx, symbol, asOf)
	if err != nil {
		if marketdata.IsNoData(err) {
			res.Outcome = OutcomeSkipped
			res.SkipReason = "provider returned no data"
			log.Warn("Symbol skipped: no data from provider")
			return res
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		o.recordStageFailure(StageFetch)
		log.WithError(err).Error("Fetch stage failed")
		return res
	}
	res.CompletedStages = append(res.CompletedStages, StageFetch)

	// Idempotence: recompute only when the raw series has grown
	if !force && o.unchangedSince(ctx, symbol, series) {
		res.Outcome = OutcomeSkipped
		res.SkipReason = "raw series unchanged since last committed run"
		log.Info("Symbol skipped: input unchanged")
		return res
	}

	// Transform
	fs, err := o.transformer.Transform(series)
	if err != nil {
		var histErr *features.InsufficientHistoryError
		if errors.As(err, &histErr) {
			res.Outcome = OutcomeSkipped
			res.SkipReason = histErr.Error()
			log.WithError(err).Warn("Symbol skipped: insufficient history")
			return res
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		o.recordStageFailure(StageTransform)
		log.WithError(err).Error("Transform stage failed")
		return res
	}
	res.CompletedStages = append(res.CompletedStages, StageTransform)

	// Headline sentiment is best-effort: a failed scrape never degrades
	// the symbol outcome
	var sentiment *news.Sentiment
	if o.news != nil {
		sentiment, err = o.news.Fetch(ctx, symbol, asOf)
		if err != nil {
			o.recordStageFailure(StageSentiment)
			log.WithError(err).Warn("Headline sentiment unavailable")
			sentiment = nil
		} else {
			res.CompletedStages = append(res.CompletedStages, StageSentiment)
		}
	}

	// Forecast and insight run concurrently on the immutable feature set;
	// the insight prompt waits on the forecast result over a channel and
	// proceeds without it on forecast failure
	priorModel := o.priorModelSnapshot(ctx, symbol)

	var (
		fc        *forecast.Artifact
		modelSnap []byte
		fcErr     error
		ins       *insight.Artifact
		insErr    error
	)
	fcCh := make(chan *forecast.Artifact, 1)
	var stages sync.WaitGroup
	stages.Add(2)
	go func() {
		defer stages.Done()
		fc, modelSnap, fcErr = o.forecaster.Predict(fs, priorModel, asOf)
		if fcErr != nil {
			fcCh <- nil
			return
		}
		fcCh <- fc
	}()
	go func() {
		defer stages.Done()
		forecastArtifact := <-fcCh
		if o.insights.Remote() {
			o.waitLimit(ctx, redis.OpenAIRateLimit)
		}
		ins, insErr = o.insights.Summarize(ctx, fs, forecastArtifact, headlineTitles(sentiment), asOf)
	}()
	stages.Wait()

	if fcErr != nil {
		o.recordStageFailure(StageForecast)
		log.WithError(fcErr).Warn("Forecast stage failed, continuing with feature-only insight")
		fc, modelSnap = nil, nil
	} else {
		res.CompletedStages = append(res.CompletedStages, StageForecast)
	}
	if insErr != nil {
		o.recordStageFailure(StageInsight)
		log.WithError(insErr).Warn("Insight stage failed, committing without commentary")
		ins = nil
	} else {
		res.CompletedStages = append(res.CompletedStages, StageInsight)
	}

	// Commit: append all surviving artifacts, then advance their latest
	// pointers in one transaction. A store failure advances nothing.
	if err := o.commit(ctx, symbol, asOf, series, fs, fc, modelSnap, ins, sentiment); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		o.recordStageFailure(StageCommit)
		log.WithError(err).Error("Commit stage failed, nothing advanced")
		return res
	}
	res.CompletedStages = append(res.CompletedStages, StageCommit)

	if o.metrics != nil {
		o.metrics.RecordLastClose(symbol, fs.LastClose())
	}

	if fcErr != nil || insErr != nil {
		res.Outcome = OutcomePartiallyCommitted
	} else {
		res.Outcome = OutcomeCommitted
	}
	log.WithField("outcome", res.Outcome).Info("Symbol pipeline finished")
	return res
}

// fetchWithRetry fetches the raw history, retrying transient failures with
// bounded exponential backoff. NoDataError is never retried.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, symbol string, asOf time.Time) (*marketdata.RawSeries, error) {
	from := asOf.AddDate(-o.cfg.HistoryYears, 0, 0)

	attempts := o.cfg.FetchRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := o.cfg.FetchBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		fetchCtx := ctx
		if o.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, o.cfg.FetchTimeout)
			defer cancel()
		}

		o.waitLimit(fetchCtx, redis.YahooRateLimit)
		series, err := o.gateway.FetchHistory(fetchCtx, symbol, from, asOf)
		if err == nil {
			return series, nil
		}
		lastErr = err

		if !marketdata.IsTransient(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		o.log.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"attempt": attempt,
			"backoff": backoff.String(),
		}).Warn("Transient fetch failure, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, lastErr
}

// unchangedSince reports whether the freshly fetched series ends at the
// same bar as the last committed raw artifact.
func (o *Orchestrator) unchangedSince(ctx context.Context, symbol string, series *marketdata.RawSeries) bool {
	prev, err := o.store.GetLatest(ctx, symbol, store.KindRaw)
	if err != nil {
		return false
	}

	var stored marketdata.RawSeries
	if err := json.Unmarshal(prev.Payload, &stored); err != nil {
		return false
	}
	if stored.Len() == 0 || series.Len() == 0 {
		return false
	}
	return stored.Len() == series.Len() && stored.LastTimestamp().Equal(series.LastTimestamp())
}

// priorModelSnapshot loads the last committed model weights, or nil.
func (o *Orchestrator) priorModelSnapshot(ctx context.Context, symbol string) []byte {
	artifact, err := o.store.GetLatest(ctx, symbol, store.KindModel)
	if err != nil {
		return nil
	}
	return artifact.Payload
}

// commit appends every surviving artifact version and advances the latest
// pointers for exactly those kinds.
func (o *Orchestrator) commit(
	ctx context.Context,
	symbol string,
	asOf time.Time,
	series *marketdata.RawSeries,
	fs *features.FeatureSet,
	fc *forecast.Artifact,
	modelSnap []byte,
	ins *insight.Artifact,
	sentiment *news.Sentiment,
) error {
	now := time.Now().UTC()

	type pending struct {
		kind    store.Kind
		payload interface{}
	}
	writes := []pending{
		{store.KindRaw, series},
		{store.KindFeatures, fs},
	}
	if fc != nil {
		writes = append(writes, pending{store.KindForecast, fc})
		writes = append(writes, pending{store.KindModel, json.RawMessage(modelSnap)})
	}
	if ins != nil {
		writes = append(writes, pending{store.KindInsight, ins})
	}
	if sentiment != nil {
		writes = append(writes, pending{store.KindSentiment, sentiment})
	}

	kinds := make([]store.Kind, 0, len(writes))
	for _, w := range writes {
		payload, err := json.Marshal(w.payload)
		if err != nil {
			return fmt.Errorf("encode %s artifact: %w", w.kind, err)
		}
		if err := o.store.Put(ctx, &store.Artifact{
			Symbol:      symbol,
			Kind:        w.kind,
			AsOf:        asOf,
			Payload:     payload,
			GeneratedAt: now,
		}); err != nil {
			return err
		}
		kinds = append(kinds, w.kind)
	}

	return o.store.AdvanceLatest(ctx, symbol, kinds, asOf)
}

func (o *Orchestrator) persistReport(ctx context.Context, report *RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return o.store.PutRun(ctx, &store.RunRecord{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Report:     payload,
	})
}

func (o *Orchestrator) recordStageFailure(stage string) {
	if o.metrics != nil {
		o.metrics.RecordStageFailure(stage)
	}
}

// headlineTitles flattens scored headlines for the insight prompt.
func headlineTitles(s *news.Sentiment) []string {
	if s == nil {
		return nil
	}
	titles := make([]string, 0, len(s.Headlines))
	for _, h := range s.Headlines {
		titles = append(titles, h.Title)
	}
	return titles
}
