// Package sentiment labels free text as Positive, Negative or Neutral.
package sentiment

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Label is the three-valued sentiment category stored with a post.
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Scorer returns a polarity in [-1, 1] for text.
type Scorer interface {
	Polarity(text string) float64
}

// Classifier maps text to a Label.
type Classifier interface {
	Classify(text string) Label
}

// LabelFor maps a polarity to a label: strictly positive, strictly negative, or zero.
func LabelFor(polarity float64) Label {
	switch {
	case polarity > 0:
		return Positive
	case polarity < 0:
		return Negative
	default:
		return Neutral
	}
}

// PolarityClassifier adapts a Scorer to the Classifier interface.
type PolarityClassifier struct {
	scorer Scorer
}

// NewClassifier wraps scorer.
func NewClassifier(scorer Scorer) *PolarityClassifier {
	return &PolarityClassifier{scorer: scorer}
}

// Classify scores text and applies LabelFor.
func (c *PolarityClassifier) Classify(text string) Label {
	return LabelFor(c.scorer.Polarity(text))
}

// VaderScorer scores text with the VADER compound polarity.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon. The analyzer only reads its tables
// after construction, so one scorer can serve concurrent requests.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity implements Scorer. Blank text scores exactly 0.
func (s *VaderScorer) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return s.analyzer.PolarityScores(text).Compound
}

var defaultScorer = sync.OnceValue(NewVaderScorer)

// DefaultScorer returns the process-wide VADER scorer.
func DefaultScorer() *VaderScorer {
	return defaultScorer()
}

// Default returns a classifier over DefaultScorer.
func Default() *PolarityClassifier {
	return NewClassifier(DefaultScorer())
}
