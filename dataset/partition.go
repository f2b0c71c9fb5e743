package dataset

import (
	"fmt"
	"github.com/hscells/adversarial/config"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// SignalLabel is the class label of signal events.
	SignalLabel = 1.0
	// BackgroundLabel is the class label of background events.
	BackgroundLabel = 0.0
)

// Partition holds the parallel per-event arrays of one class: a row of Features, a row of Nuisances, one weight and
// one label per event.
type Partition struct {
	Features  *mat.Dense
	Nuisances *mat.Dense
	Weights   []float64
	Labels    []float64
}

// Len is the number of events in the partition.
func (p Partition) Len() int {
	return len(p.Weights)
}

// Validate checks that all arrays share the same non-zero length and that no weight is negative.
func (p Partition) Validate() error {
	n := len(p.Weights)
	if n == 0 {
		return errors.New("partition is empty")
	}
	if p.Features == nil || p.Nuisances == nil {
		return errors.New("partition is missing features or nuisances")
	}
	if r, _ := p.Features.Dims(); r != n {
		return fmt.Errorf("partition has %d feature rows but %d weights", r, n)
	}
	if r, _ := p.Nuisances.Dims(); r != n {
		return fmt.Errorf("partition has %d nuisance rows but %d weights", r, n)
	}
	if len(p.Labels) != n {
		return fmt.Errorf("partition has %d labels but %d weights", len(p.Labels), n)
	}
	for i, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("event %d has negative weight %v", i, w)
		}
	}
	return nil
}

// LabelMatrix returns the labels as an n×1 matrix.
func (p Partition) LabelMatrix() *mat.Dense {
	return mat.NewDense(len(p.Labels), 1, append([]float64(nil), p.Labels...))
}

// Sources returns the parallel arrays of the partition in the order features, nuisances, labels.
func (p Partition) Sources() []*mat.Dense {
	return []*mat.Dense{p.Features, p.Nuisances, p.LabelMatrix()}
}

// Merge concatenates partitions, keeping the order of their rows.
func Merge(parts ...Partition) (Partition, error) {
	var (
		features  []*mat.Dense
		nuisances []*mat.Dense
		merged    Partition
	)
	for i, p := range parts {
		if err := p.Validate(); err != nil {
			return Partition{}, errors.Wrapf(err, "partition %d", i)
		}
		features = append(features, p.Features)
		nuisances = append(nuisances, p.Nuisances)
		merged.Weights = append(merged.Weights, p.Weights...)
		merged.Labels = append(merged.Labels, p.Labels...)
	}
	if len(parts) == 0 {
		return Partition{}, errors.New("nothing to merge")
	}

	var err error
	if merged.Features, err = Stack(features...); err != nil {
		return Partition{}, errors.Wrap(err, "features")
	}
	if merged.Nuisances, err = Stack(nuisances...); err != nil {
		return Partition{}, errors.Wrap(err, "nuisances")
	}
	return merged, nil
}

// Stack concatenates the rows of matrices that share the same number of columns.
func Stack(ms ...*mat.Dense) (*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, errors.New("nothing to stack")
	}
	var rows int
	_, cols := ms[0].Dims()
	for _, m := range ms {
		r, c := m.Dims()
		if c != cols {
			return nil, fmt.Errorf("cannot stack a matrix with %d columns onto one with %d", c, cols)
		}
		rows += r
	}
	out := mat.NewDense(rows, cols, nil)
	var i int
	for _, m := range ms {
		r, _ := m.Dims()
		for j := 0; j < r; j++ {
			out.SetRow(i, m.RawRowView(j))
			i++
		}
	}
	return out, nil
}

// Extract turns a table into a partition. The configured training branches become the features, the nuisance
// branches the nuisances and the weight branch, scaled by the reweighting factor of the sample, the weights.
func Extract(t Table, conf config.TrainingConfig, sample string, label float64) (Partition, error) {
	if t.Rows == 0 {
		return Partition{}, errors.Errorf("sample %s has no events", sample)
	}

	features, err := columns(t, conf.TrainingBranches)
	if err != nil {
		return Partition{}, errors.Wrapf(err, "sample %s", sample)
	}
	nuisances, err := columns(t, conf.NuisanceBranches)
	if err != nil {
		return Partition{}, errors.Wrapf(err, "sample %s", sample)
	}
	raw, err := t.Column(conf.WeightBranch)
	if err != nil {
		return Partition{}, errors.Wrapf(err, "sample %s", sample)
	}

	scale := conf.Reweighting(sample)
	weights := make([]float64, t.Rows)
	labels := make([]float64, t.Rows)
	for i, w := range raw {
		weights[i] = w * scale
		labels[i] = label
	}

	p := Partition{
		Features:  features,
		Nuisances: nuisances,
		Weights:   weights,
		Labels:    labels,
	}
	return p, errors.Wrapf(p.Validate(), "sample %s", sample)
}

func columns(t Table, names []string) (*mat.Dense, error) {
	m := mat.NewDense(t.Rows, len(names), nil)
	for j, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, c)
	}
	return m, nil
}
