package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/Brownie44l1/fundgrube-api/internal/labels"
)

var errEmptyScores = errors.New("classifier returned no scores")

// Resolve picks the arg-max class (first occurrence wins on ties) and looks
// its label up in catalog. A nil catalog yields "Class {index}".
func Resolve(probs []float32, catalog *labels.Catalog) (PredictionResult, error) {
	if len(probs) == 0 {
		return PredictionResult{}, errEmptyScores
	}

	maxIdx := 0
	for i, v := range probs {
		if v > probs[maxIdx] {
			maxIdx = i
		}
	}

	// A label seen twice keeps its first score; later classes are keyed
	// "{label} #{index}" so none is overwritten.
	scores := make(map[string]float32, len(probs))
	for i, v := range probs {
		key := catalog.Label(i)
		if _, dup := scores[key]; dup {
			key = fmt.Sprintf("%s #%d", key, i)
		}
		scores[key] = v
	}

	conf := probs[maxIdx]
	return PredictionResult{
		ClassIndex: maxIdx,
		Label:      catalog.Label(maxIdx),
		Confidence: conf,
		Percent:    Percent(conf),
		Scores:     scores,
	}, nil
}

// Percent renders a probability as a percentage with two decimals.
func Percent(p float32) float64 {
	return math.Round(float64(p)*100*100) / 100
}
