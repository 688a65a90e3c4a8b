package news

import "strings"

// Sentiment labels. Thresholds follow the usual polarity convention: scores
// within ±0.1 of zero are neutral.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

const neutralBand = 0.1

// positive and negative are the financial-news polarity lexicons. Each hit
// moves the headline score by one unit before normalization.
var positive = map[string]struct{}{
	"up": {}, "gain": {}, "gains": {}, "surge": {}, "surges": {}, "rally": {},
	"rallies": {}, "beat": {}, "beats": {}, "record": {}, "high": {}, "highs": {},
	"strong": {}, "growth": {}, "profit": {}, "profits": {}, "soar": {}, "soars": {},
	"jump": {}, "jumps": {}, "rise": {}, "rises": {}, "bullish": {}, "upgrade": {},
	"upgraded": {}, "outperform": {}, "buy": {}, "win": {}, "wins": {}, "boost": {},
	"boosts": {}, "positive": {}, "exceed": {}, "exceeds": {}, "tops": {},
}

var negative = map[string]struct{}{
	"down": {}, "loss": {}, "losses": {}, "drop": {}, "drops": {}, "fall": {},
	"falls": {}, "miss": {}, "misses": {}, "low": {}, "lows": {}, "weak": {},
	"decline": {}, "declines": {}, "plunge": {}, "plunges": {}, "crash": {},
	"bearish": {}, "downgrade": {}, "downgraded": {}, "underperform": {},
	"sell": {}, "selloff": {}, "cut": {}, "cuts": {}, "warning": {}, "warns": {},
	"negative": {}, "lawsuit": {}, "recall": {}, "slump": {}, "slumps": {},
	"sink": {}, "sinks": {}, "fear": {}, "fears": {}, "risk": {}, "tumble": {},
	"tumbles": {},
}

// Score rates a headline in [-1, 1] from lexicon hits.
func Score(title string) float64 {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	if len(words) == 0 {
		return 0
	}

	var hits, polarity int
	for _, w := range words {
		if _, ok := positive[w]; ok {
			hits++
			polarity++
		} else if _, ok := negative[w]; ok {
			hits++
			polarity--
		}
	}
	if hits == 0 {
		return 0
	}
	return float64(polarity) / float64(hits)
}

// Label classifies a polarity score.
func Label(score float64) string {
	switch {
	case score > neutralBand:
		return LabelPositive
	case score < -neutralBand:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
