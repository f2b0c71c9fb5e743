package learning

import (
	"gonum.org/v1/gonum/mat"
)

// Batch is a coherently sampled set of events: row i of Features, Nuisances and Labels and Weights[i] all belong to
// the same event.
type Batch struct {
	Features  *mat.Dense
	Nuisances *mat.Dense
	Labels    *mat.Dense
	Weights   []float64
}

// Len is the number of events in the batch.
func (b Batch) Len() int {
	return len(b.Weights)
}

// Trainable is the set of operations the training loop needs from a model environment. The loop never looks inside
// the environment; any architecture implementing these operations can be trained.
type Trainable interface {
	// Init is called once, before any training, with the full training dataset (signal rows first).
	Init(data, nuisances mat.Matrix) error
	// TrainAdversary performs an update of the adversary only.
	TrainAdversary(batch Batch) error
	// TrainStep performs an update of the classifier against the current adversary.
	TrainStep(batch Batch) error
	// DumpLossInformation reports the current losses on the batch.
	DumpLossInformation(batch Batch) error
	// ModelStatistics returns named scalar diagnostics evaluated on the batch. The values must be finite and the name
	// BatchKey is reserved for the batch index the loop adds itself.
	ModelStatistics(batch Batch) (map[string]float64, error)
}

// Environment is a trainable model that can also be evaluated.
type Environment interface {
	Trainable
	// Predict returns one row per event holding the score of each class (background, signal).
	Predict(data mat.Matrix) (*mat.Dense, error)
	// Parameters describes the environment, e.g. its hyper-parameters.
	Parameters() map[string]float64
}
