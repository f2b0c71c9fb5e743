package eval

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// AUROC is the weighted area under the receiver operating characteristic of signal and background scores.
func AUROC(sigPred, sigWeights, bkgPred, bkgWeights []float64) (float64, error) {
	if len(sigPred) != len(sigWeights) || len(bkgPred) != len(bkgWeights) {
		return 0, errors.New("every prediction needs exactly one weight")
	}
	if floats.Sum(sigWeights) <= 0 || floats.Sum(bkgWeights) <= 0 {
		return 0, errors.New("AUROC needs signal and background events with positive weight")
	}

	n := len(sigPred) + len(bkgPred)
	y := make([]float64, 0, n)
	classes := make([]bool, 0, n)
	weights := make([]float64, 0, n)
	y = append(y, sigPred...)
	weights = append(weights, sigWeights...)
	for range sigPred {
		classes = append(classes, true)
	}
	y = append(y, bkgPred...)
	weights = append(weights, bkgWeights...)
	for range bkgPred {
		classes = append(classes, false)
	}

	stat.SortWeightedLabeled(y, classes, weights)
	tpr, fpr, _ := stat.ROC(nil, y, classes, weights)
	return integrate.Trapezoidal(fpr, tpr), nil
}
