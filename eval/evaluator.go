package eval

import (
	"gonum.org/v1/gonum/mat"
)

// Predictor is a classifier that can be evaluated.
type Predictor interface {
	// Predict returns one row per event holding the score of each class (background, signal).
	Predict(data mat.Matrix) (*mat.Dense, error)
	Parameters() map[string]float64
}

// Evaluator computes a performance dictionary for a predictor.
type Evaluator struct {
	SignalEfficiencies []float64
	GridPoints         int
}

// NewEvaluator creates an evaluator using the default signal efficiencies.
func NewEvaluator() Evaluator {
	return Evaluator{
		SignalEfficiencies: DefaultSignalEfficiencies,
		GridPoints:         DefaultGridPoints,
	}
}
