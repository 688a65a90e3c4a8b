package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/httputil"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// Headline is one scraped news item with its sentiment score.
type Headline struct {
	Symbol         string    `json:"symbol"`
	Title          string    `json:"title"`
	Link           string    `json:"link,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	SentimentLabel string    `json:"sentiment_label"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Sentiment holds the aggregated headline sentiment for one symbol.
type Sentiment struct {
	Symbol    string     `json:"symbol"`
	AsOf      time.Time  `json:"as_of"`
	Score     float64    `json:"score"` // mean headline score, -1..1
	Label     string     `json:"label"`
	Headlines []Headline `json:"headlines"`
}

// Scraper fetches recent headlines for a symbol and scores them. Headline
// structure on news sites changes without notice, so a failed scrape is a
// soft failure: callers log it and continue without sentiment.
type Scraper struct {
	http  *httputil.Client
	limit int
	log   *logger.Logger
}

// NewScraper creates a headline scraper.
func NewScraper(cfg config.NewsConfig, client *httputil.Client, log *logger.Logger) *Scraper {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 5
	}

	return &Scraper{
		http:  client,
		limit: limit,
		log:   log.WithField("component", "news"),
	}
}

// Fetch scrapes recent headlines for the symbol and aggregates sentiment.
func (s *Scraper) Fetch(ctx context.Context, symbol string, asOf time.Time) (*Sentiment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL(symbol), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finsight/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch headlines for %s: HTTP %d", symbol, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse headlines for %s: %w", symbol, err)
	}

	headlines := s.parse(doc, symbol, asOf)
	if len(headlines) == 0 {
		return nil, fmt.Errorf("no headlines found for %s", symbol)
	}

	sentiment := Aggregate(symbol, asOf, headlines)
	s.log.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"headlines": len(headlines),
		"label":     sentiment.Label,
	}).Debug("Headline sentiment scored")
	return sentiment, nil
}

// searchURL builds the news search query for a stock symbol.
func searchURL(symbol string) string {
	query := url.QueryEscape(symbol + " stock")
	return fmt.Sprintf("https://news.google.com/search?q=%s&hl=en&gl=US&ceid=US:en", query)
}

// parse extracts scored headlines from the search result document.
func (s *Scraper) parse(doc *goquery.Document, symbol string, asOf time.Time) []Headline {
	var headlines []Headline

	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find("h4").Text())
		}
		if title == "" {
			title = strings.TrimSpace(sel.Find("a[href*='articles']").First().Text())
		}
		if title == "" {
			return true
		}

		link, _ := sel.Find("a").First().Attr("href")
		link = cleanLink(link)

		score := Score(title)
		headlines = append(headlines, Headline{
			Symbol:         symbol,
			Title:          title,
			Link:           link,
			SentimentScore: score,
			SentimentLabel: Label(score),
			FetchedAt:      asOf,
		})
		return len(headlines) < s.limit
	})

	return headlines
}

// cleanLink resolves the relative article links the search page emits.
func cleanLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "./") {
		return "https://news.google.com/" + strings.TrimPrefix(href, "./")
	}
	return href
}

// Aggregate combines per-headline scores into a symbol sentiment.
func Aggregate(symbol string, asOf time.Time, headlines []Headline) *Sentiment {
	var sum float64
	for _, h := range headlines {
		sum += h.SentimentScore
	}
	score := sum / float64(len(headlines))

	return &Sentiment{
		Symbol:    symbol,
		AsOf:      asOf,
		Score:     score,
		Label:     Label(score),
		Headlines: headlines,
	}
}
