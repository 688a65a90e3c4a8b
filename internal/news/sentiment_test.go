package news

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/httputil"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"positive", "Apple shares surge to record high after strong earnings beat", LabelPositive},
		{"negative", "Tesla stock plunges as deliveries miss estimates", LabelNegative},
		{"neutral no hits", "Apple announces event date for September", LabelNeutral},
		{"mixed cancels out", "Stock up after earlier drop", LabelNeutral},
		{"empty", "", LabelNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.title)
			assert.GreaterOrEqual(t, score, -1.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.Equal(t, tt.want, Label(score))
		})
	}
}

func TestAggregate(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	headlines := []Headline{
		{Symbol: "AAPL", Title: "a", SentimentScore: 1},
		{Symbol: "AAPL", Title: "b", SentimentScore: 0.5},
		{Symbol: "AAPL", Title: "c", SentimentScore: 0},
	}

	s := Aggregate("AAPL", asOf, headlines)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.InDelta(t, 0.5, s.Score, 1e-9)
	assert.Equal(t, LabelPositive, s.Label)
	assert.Len(t, s.Headlines, 3)
}

func TestScraper_Parse(t *testing.T) {
	html := `
	<html><body>
		<article><a href="./articles/one"><h3>Apple stock surges to record high</h3></a><time>1h</time></article>
		<article><a href="./articles/two"><h4>Analysts warn of weak iPhone demand</h4></a></article>
		<article><a href="./articles/three"></a></article>
		<article><a href="https://example.com/four"><h3>Apple schedules September event</h3></a></article>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	log := logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
	s := NewScraper(config.NewsConfig{Enabled: true, Limit: 5}, httputil.New(&config.Config{}, log), log)

	asOf := time.Now().UTC()
	headlines := s.parse(doc, "AAPL", asOf)
	require.Len(t, headlines, 3) // the untitled article is skipped

	assert.Equal(t, "Apple stock surges to record high", headlines[0].Title)
	assert.Equal(t, "https://news.google.com/articles/one", headlines[0].Link)
	assert.Equal(t, LabelPositive, headlines[0].SentimentLabel)

	assert.Equal(t, LabelNegative, headlines[1].SentimentLabel)
	assert.Equal(t, "https://example.com/four", headlines[2].Link)
	assert.Equal(t, LabelNeutral, headlines[2].SentimentLabel)
}

func TestScraper_ParseRespectsLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 10; i++ {
		b.WriteString(`<article><a href="./articles/x"><h3>Some headline</h3></a></article>`)
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)

	log := logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
	s := NewScraper(config.NewsConfig{Enabled: true, Limit: 3}, httputil.New(&config.Config{}, log), log)

	assert.Len(t, s.parse(doc, "AAPL", time.Now()), 3)
}
