package dataset

import (
	"github.com/hscells/adversarial/config"
	"github.com/pkg/errors"
)

// Sample is the partition of a single named sample, e.g. "ttbar".
type Sample struct {
	Name string
	Partition
}

// Samples holds the signal and background samples of one slice of the data.
type Samples struct {
	Signal     []Sample
	Background []Sample
}

// Events returns the total number of signal and background events.
func (s Samples) Events() (sig, bkg int) {
	for _, x := range s.Signal {
		sig += x.Len()
	}
	for _, x := range s.Background {
		bkg += x.Len()
	}
	return
}

// Merged merges all signal samples into one partition and all background samples into another.
func (s Samples) Merged() (sig, bkg Partition, err error) {
	if sig, err = merge(s.Signal); err != nil {
		return Partition{}, Partition{}, errors.Wrap(err, "signal")
	}
	if bkg, err = merge(s.Background); err != nil {
		return Partition{}, Partition{}, errors.Wrap(err, "background")
	}
	return sig, bkg, nil
}

func merge(samples []Sample) (Partition, error) {
	parts := make([]Partition, len(samples))
	for i, s := range samples {
		parts[i] = s.Partition
	}
	return Merge(parts...)
}

// Load reads every configured signal and background sample from src and keeps the rows inside slice. The sampling
// length of a sample further restricts it to the leading fraction of those rows.
func Load(src Source, conf config.TrainingConfig, slice config.Slice) (Samples, error) {
	if err := conf.Validate(); err != nil {
		return Samples{}, err
	}

	var (
		samples Samples
		err     error
	)
	samples.Signal, err = load(src, conf, slice, conf.SigSamples, conf.SigSamplingLengths, SignalLabel)
	if err != nil {
		return Samples{}, err
	}
	samples.Background, err = load(src, conf, slice, conf.BkgSamples, conf.BkgSamplingLengths, BackgroundLabel)
	if err != nil {
		return Samples{}, err
	}
	return samples, nil
}

func load(src Source, conf config.TrainingConfig, slice config.Slice, names []string, lengths []float64, label float64) ([]Sample, error) {
	samples := make([]Sample, len(names))
	for i, name := range names {
		t, err := src.Load(name)
		if err != nil {
			return nil, err
		}
		t = Split(Split(t, slice.Lo, slice.Hi), 0, lengths[i])
		p, err := Extract(t, conf, name, label)
		if err != nil {
			return nil, err
		}
		samples[i] = Sample{Name: name, Partition: p}
	}
	return samples, nil
}
