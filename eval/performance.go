// Package eval measures the classification performance and the nuisance dependence of a trained classifier.
package eval

import (
	"fmt"
	"github.com/hscells/adversarial/dataset"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// AUROCKey is the performance dictionary entry holding the area under the ROC curve.
const AUROCKey = "AUROC"

// DefaultSignalEfficiencies are the signal efficiencies the nuisance dependence is measured at.
var DefaultSignalEfficiencies = []float64{0.5, 0.25}

// KSKey names the KS entry of a sample (or "avg", "bkg") at a signal efficiency, e.g. KS_50_ttbar.
func KSKey(sigEff float64, label string) string {
	return fmt.Sprintf("KS_%d_%s", int(sigEff*100), label)
}

type scored struct {
	label    string
	pred     []float64
	nuisance []float64
	weights  []float64
}

// PerformanceMetrics evaluates p on samples. The dictionary holds the weighted AUROC of all signal against all
// background events and, for every signal efficiency, the KS distance between the first nuisance of each sample
// before and after the classifier cut reaching that efficiency on the merged signal. KS_<eff>_avg averages the
// per-sample distances and KS_<eff>_bkg is measured on the merged background. The parameters of p are added last.
func (e Evaluator) PerformanceMetrics(p Predictor, samples dataset.Samples) (map[string]float64, error) {
	if len(samples.Signal) == 0 || len(samples.Background) == 0 {
		return nil, errors.New("performance metrics need signal and background samples")
	}

	sig := make([]scored, len(samples.Signal))
	for i, s := range samples.Signal {
		x, err := score(p, s)
		if err != nil {
			return nil, err
		}
		sig[i] = x
	}
	bkg := make([]scored, len(samples.Background))
	for i, s := range samples.Background {
		x, err := score(p, s)
		if err != nil {
			return nil, err
		}
		bkg[i] = x
	}
	sigMerged, bkgMerged := concat(sig), concat(bkg)

	perf := make(map[string]float64)
	auroc, err := AUROC(sigMerged.pred, sigMerged.weights, bkgMerged.pred, bkgMerged.weights)
	if err != nil {
		return nil, err
	}
	perf[AUROCKey] = auroc

	all := append(append([]scored(nil), sig...), bkg...)
	for _, eff := range e.SignalEfficiencies {
		cut, err := WeightedPercentile(sigMerged.pred, sigMerged.weights, 1-eff)
		if err != nil {
			return nil, errors.Wrapf(err, "classifier cut for signal efficiency %v", eff)
		}

		var sum float64
		for _, x := range all {
			ks := e.ks(x, cut)
			perf[KSKey(eff, x.label)] = ks
			sum += ks
		}
		perf[KSKey(eff, "avg")] = sum / float64(len(all))
		perf[KSKey(eff, "bkg")] = e.ks(bkgMerged, cut)
	}

	for name, value := range p.Parameters() {
		perf[name] = value
	}
	return perf, nil
}

// PerformanceMetrics evaluates p with the default signal efficiencies.
func PerformanceMetrics(p Predictor, samples dataset.Samples) (map[string]float64, error) {
	return NewEvaluator().PerformanceMetrics(p, samples)
}

// ks compares the nuisance distribution of x with the one of its events scoring above cut.
func (e Evaluator) ks(x scored, cut float64) float64 {
	var passed, passedWeights []float64
	for i, pred := range x.pred {
		if pred > cut {
			passed = append(passed, x.nuisance[i])
			passedWeights = append(passedWeights, x.weights[i])
		}
	}
	return KS(x.nuisance, x.weights, passed, passedWeights, e.GridPoints)
}

func score(p Predictor, s dataset.Sample) (scored, error) {
	if err := s.Validate(); err != nil {
		return scored{}, errors.Wrapf(err, "sample %s", s.Name)
	}
	pred, err := p.Predict(s.Features)
	if err != nil {
		return scored{}, errors.Wrapf(err, "could not predict sample %s", s.Name)
	}
	r, c := pred.Dims()
	if r != s.Len() || c < 2 {
		return scored{}, errors.Errorf("prediction of sample %s has shape %dx%d, expected %dx2", s.Name, r, c, s.Len())
	}
	return scored{
		label:    s.Name,
		pred:     mat.Col(nil, 1, pred),
		nuisance: mat.Col(nil, 0, s.Nuisances),
		weights:  s.Weights,
	}, nil
}

func concat(xs []scored) scored {
	var merged scored
	for _, x := range xs {
		merged.pred = append(merged.pred, x.pred...)
		merged.nuisance = append(merged.nuisance, x.nuisance...)
		merged.weights = append(merged.weights, x.weights...)
	}
	return merged
}
