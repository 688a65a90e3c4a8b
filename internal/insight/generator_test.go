package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func testFeatureSet(n int) *features.FeatureSet {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]features.Row, n)
	for i := range rows {
		rows[i] = features.Row{
			Timestamp:  base.AddDate(0, 0, i),
			Close:      100 + float64(i),
			ReturnPct:  0.01,
			MA:         99 + float64(i),
			Volatility: 0.015,
			RSI:        62.0,
		}
	}
	return &features.FeatureSet{Symbol: "AAPL", Windows: features.DefaultWindows(), Rows: rows}
}

func testForecast() *forecast.Artifact {
	return &forecast.Artifact{
		Symbol:             "AAPL",
		PredictedClose:     121.3,
		PredictedChangePct: 1.9,
		Direction:          forecast.DirectionUp,
	}
}

func openAIStub(t *testing.T, status int, content string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		if gotPrompt != nil {
			*gotPrompt = req.Messages[1].Content
		}

		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(chatResponse{
				Choices: []struct {
					Message chatMessage `json:"message"`
				}{{Message: chatMessage{Role: "assistant", Content: content}}},
			})
			return
		}
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
}

func openAIConfig(baseURL string) config.OpenAIConfig {
	return config.OpenAIConfig{
		APIKey:    "sk-test",
		BaseURL:   baseURL,
		Model:     "gpt-4o-mini",
		MaxTokens: 60,
		Timeout:   5 * time.Second,
	}
}

func TestGenerator_RemoteSummarize(t *testing.T) {
	var prompt string
	srv := openAIStub(t, http.StatusOK, "  AAPL trends higher on steady volume.  ", &prompt)
	defer srv.Close()

	g := NewGenerator(openAIConfig(srv.URL), testLogger())
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	artifact, err := g.Summarize(context.Background(), testFeatureSet(30), testForecast(), []string{"Apple beats estimates"}, asOf)
	require.NoError(t, err)

	assert.Equal(t, "AAPL trends higher on steady volume.", artifact.Commentary)
	assert.Equal(t, SourceOpenAI, artifact.Source)
	assert.Equal(t, "gpt-4o-mini", artifact.Model)
	assert.Equal(t, asOf, artifact.AsOf)

	assert.Contains(t, prompt, "AAPL")
	assert.Contains(t, prompt, "121.30")
	assert.Contains(t, prompt, "Apple beats estimates")
}

func TestGenerator_PromptIsBounded(t *testing.T) {
	fs := testFeatureSet(500)
	headlines := make([]string, 50)
	for i := range headlines {
		headlines[i] = "headline"
	}

	prompt := buildPrompt(fs, testForecast(), headlines)

	// Only the trailing rows appear: the first row's date must not
	assert.NotContains(t, prompt, "2026-08-01")
	assert.Contains(t, prompt, fs.LastRow().Timestamp.Format("2006-01-02"))
	assert.Equal(t, promptHeadlines, strings.Count(prompt, "- headline"))
}

func TestGenerator_ServiceErrorSignalsInsightError(t *testing.T) {
	srv := openAIStub(t, http.StatusTooManyRequests, "", nil)
	defer srv.Close()

	g := NewGenerator(openAIConfig(srv.URL), testLogger())

	_, err := g.Summarize(context.Background(), testFeatureSet(30), nil, nil, time.Now())
	require.Error(t, err)

	var insErr *InsightError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, "AAPL", insErr.Symbol)
	assert.Contains(t, insErr.Error(), "rate limited")
}

func TestGenerator_TimeoutSignalsInsightError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := openAIConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	g := NewGenerator(cfg, testLogger())

	_, err := g.Summarize(context.Background(), testFeatureSet(30), nil, nil, time.Now())
	var insErr *InsightError
	require.ErrorAs(t, err, &insErr)
}

func TestGenerator_LocalFallbackWithoutKey(t *testing.T) {
	g := NewGenerator(config.OpenAIConfig{Model: "gpt-4o-mini"}, testLogger())

	fs := testFeatureSet(30)
	artifact, err := g.Summarize(context.Background(), fs, testForecast(), nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, SourceLocal, artifact.Source)
	assert.Contains(t, artifact.Commentary, "AAPL closed at $129.00")
	assert.Contains(t, artifact.Commentary, "bullish")
	assert.Contains(t, artifact.Commentary, "121.30")

	// Deterministic
	again, err := g.Summarize(context.Background(), fs, testForecast(), nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, artifact.Commentary, again.Commentary)
}

func TestGenerator_LocalFallbackWithoutForecast(t *testing.T) {
	g := NewGenerator(config.OpenAIConfig{}, testLogger())

	artifact, err := g.Summarize(context.Background(), testFeatureSet(30), nil, nil, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, artifact.Commentary, "projects")
}

func TestGenerator_EmptyFeatureSet(t *testing.T) {
	g := NewGenerator(config.OpenAIConfig{}, testLogger())

	_, err := g.Summarize(context.Background(), &features.FeatureSet{Symbol: "AAPL"}, nil, nil, time.Now())
	var insErr *InsightError
	require.ErrorAs(t, err, &insErr)
}
