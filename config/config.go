// Package config contains the configuration of a training run. A configuration is built once (from defaults,
// optionally overridden by a meta.conf file) and passed by value to everything that needs it.
package config

import (
	"fmt"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// MetaFile is the name of the file FromFile reads inside a configuration directory.
	MetaFile = "meta.conf"

	trainingPrefix    = "TrainingConfig."
	environmentPrefix = "AdversarialEnvironment."
)

// Slice is a half-open fractional range [Lo, Hi) of the rows of a sample.
type Slice struct {
	Lo float64
	Hi float64
}

// EnvironmentConfig holds the hyper-parameters of the reference adversarial environment.
type EnvironmentConfig struct {
	Lambda             float64
	ClassifierRate     float64
	AdversaryRate      float64
	AdversarySteps     int
	ClassifierMomentum float64
}

// TrainingConfig is the complete, immutable description of a training run. Values are copied when passed around,
// callers must not modify the slices and maps of a configuration they did not build themselves.
type TrainingConfig struct {
	TrainingBranches  []string
	NuisanceBranches  []string
	AuxiliaryBranches []string
	WeightBranch      string

	PretrainBatches  int
	TrainingBatches  int
	BatchSize        int
	PrintoutInterval int

	WeightTolerance       float64
	MaxSamplingIterations int
	MaxSamplingGrowth     int
	Seed                  int64

	TrainingSlice   Slice
	ValidationSlice Slice
	TestSlice       Slice

	SigSamples         []string
	SigSamplingLengths []float64
	BkgSamples         []string
	BkgSamplingLengths []float64
	SampleReweighting  map[string]float64

	Environment EnvironmentConfig
}

// Error is returned when a configuration value is malformed or out of range.
type Error struct {
	Key    string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if len(e.Value) > 0 {
		return fmt.Sprintf("configuration error: %s=%q: %s", e.Key, e.Value, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// Default returns the default configuration of a training run.
func Default() TrainingConfig {
	return TrainingConfig{
		TrainingBranches:  []string{"mBB", "dRBB", "pTB1", "pTB2", "MET", "dEtaBB", "dPhiMETdijet", "SumPtJet"},
		NuisanceBranches:  []string{"mBB"},
		AuxiliaryBranches: []string{"EventWeight", "mBB", "dRBB", "nJ"},
		WeightBranch:      "EventWeight",

		PretrainBatches:  100,
		TrainingBatches:  800,
		BatchSize:        256,
		PrintoutInterval: 10,

		WeightTolerance:       0.1,
		MaxSamplingIterations: 1000,
		MaxSamplingGrowth:     100,
		Seed:                  12345,

		TrainingSlice:   Slice{Lo: 0.0, Hi: 0.33},
		ValidationSlice: Slice{Lo: 0.33, Hi: 0.44},
		TestSlice:       Slice{Lo: 0.44, Hi: 1.0},

		SigSamples:         []string{"Hbb"},
		SigSamplingLengths: []float64{1.0},
		BkgSamples:         []string{"Zjets", "Wjets", "ttbar", "diboson"},
		BkgSamplingLengths: []float64{1.0, 1.0, 1.0, 1.0},
		SampleReweighting: map[string]float64{
			"Hbb":     1.0,
			"Zjets":   1.0,
			"Wjets":   1.0,
			"ttbar":   1.0,
			"diboson": 1.0,
		},

		Environment: EnvironmentConfig{
			Lambda:             10.0,
			ClassifierRate:     0.01,
			AdversaryRate:      0.05,
			AdversarySteps:     1,
			ClassifierMomentum: 0.0,
		},
	}
}

// Reweighting returns the weight factor applied to all events of a sample.
func (c TrainingConfig) Reweighting(sample string) float64 {
	if w, ok := c.SampleReweighting[sample]; ok {
		return w
	}
	return 1.0
}

// Validate checks the values of a configuration for consistency.
func (c TrainingConfig) Validate() error {
	switch {
	case len(c.TrainingBranches) == 0:
		return &Error{Key: "training_branches", Reason: "at least one training branch is required"}
	case len(c.NuisanceBranches) == 0:
		return &Error{Key: "nuisance_branches", Reason: "at least one nuisance branch is required"}
	case len(c.WeightBranch) == 0:
		return &Error{Key: "weight_branch", Reason: "must not be empty"}
	case c.PretrainBatches < 0:
		return &Error{Key: "pretrain_batches", Value: strconv.Itoa(c.PretrainBatches), Reason: "must not be negative"}
	case c.TrainingBatches < 0:
		return &Error{Key: "training_batches", Value: strconv.Itoa(c.TrainingBatches), Reason: "must not be negative"}
	case c.BatchSize <= 0:
		return &Error{Key: "batch_size", Value: strconv.Itoa(c.BatchSize), Reason: "must be positive"}
	case c.PrintoutInterval <= 0:
		return &Error{Key: "printout_interval", Value: strconv.Itoa(c.PrintoutInterval), Reason: "must be positive"}
	case c.WeightTolerance <= 0 || c.WeightTolerance >= 1:
		return &Error{Key: "weight_tolerance", Value: formatFloat(c.WeightTolerance), Reason: "must lie in (0, 1)"}
	case c.MaxSamplingIterations <= 0:
		return &Error{Key: "max_sampling_iterations", Value: strconv.Itoa(c.MaxSamplingIterations), Reason: "must be positive"}
	case c.MaxSamplingGrowth <= 0:
		return &Error{Key: "max_sampling_growth", Value: strconv.Itoa(c.MaxSamplingGrowth), Reason: "must be positive"}
	case len(c.SigSamples) == 0:
		return &Error{Key: "sig_samples", Reason: "at least one signal sample is required"}
	case len(c.BkgSamples) == 0:
		return &Error{Key: "bkg_samples", Reason: "at least one background sample is required"}
	case len(c.SigSamplingLengths) != len(c.SigSamples):
		return &Error{Key: "sig_sampling_lengths", Reason: "must have one entry per signal sample"}
	case len(c.BkgSamplingLengths) != len(c.BkgSamples):
		return &Error{Key: "bkg_sampling_lengths", Reason: "must have one entry per background sample"}
	}

	for key, s := range map[string]Slice{
		"training_slice":   c.TrainingSlice,
		"validation_slice": c.ValidationSlice,
		"test_slice":       c.TestSlice,
	} {
		if s.Lo < 0 || s.Hi > 1 || s.Lo >= s.Hi {
			return &Error{Key: key, Value: formatSlice(s), Reason: "must satisfy 0 <= lo < hi <= 1"}
		}
	}

	for i, l := range append(append([]float64{}, c.SigSamplingLengths...), c.BkgSamplingLengths...) {
		if l <= 0 || l > 1 {
			return &Error{Key: "sampling_lengths", Value: formatFloat(l), Reason: fmt.Sprintf("entry %d must lie in (0, 1]", i)}
		}
	}

	for sample, w := range c.SampleReweighting {
		if w < 0 {
			return &Error{Key: "sample_reweighting", Value: formatFloat(w), Reason: fmt.Sprintf("weight of %s must not be negative", sample)}
		}
	}
	return nil
}

// FromFile reads the meta.conf file inside dir and applies its values on top of the default configuration.
func FromFile(dir string) (TrainingConfig, error) {
	p, err := properties.LoadFile(filepath.Join(dir, MetaFile), properties.UTF8)
	if err != nil {
		return TrainingConfig{}, errors.Wrapf(err, "could not load configuration from %s", dir)
	}
	return FromProperties(Default(), p)
}

// FromProperties overrides the values of base with the values found in p. Keys of the training run are prefixed with
// "TrainingConfig." and keys of the environment with "AdversarialEnvironment.".
func FromProperties(base TrainingConfig, p *properties.Properties) (TrainingConfig, error) {
	c := base.clone()
	t := p.FilterStripPrefix(trainingPrefix)
	e := p.FilterStripPrefix(environmentPrefix)

	var err error
	set := func(f func() error) {
		if err == nil {
			err = f()
		}
	}

	set(func() error { return readStrings(t, "training_branches", &c.TrainingBranches) })
	set(func() error { return readStrings(t, "nuisance_branches", &c.NuisanceBranches) })
	set(func() error { return readStrings(t, "auxiliary_branches", &c.AuxiliaryBranches) })
	set(func() error { return readString(t, "weight_branch", &c.WeightBranch) })
	set(func() error { return readInt(t, "pretrain_batches", &c.PretrainBatches) })
	set(func() error { return readInt(t, "training_batches", &c.TrainingBatches) })
	set(func() error { return readInt(t, "batch_size", &c.BatchSize) })
	set(func() error { return readInt(t, "printout_interval", &c.PrintoutInterval) })
	set(func() error { return readFloat(t, "weight_tolerance", &c.WeightTolerance) })
	set(func() error { return readInt(t, "max_sampling_iterations", &c.MaxSamplingIterations) })
	set(func() error { return readInt(t, "max_sampling_growth", &c.MaxSamplingGrowth) })
	set(func() error {
		var seed int
		if _, ok := t.Get("seed"); !ok {
			return nil
		}
		if err := readInt(t, "seed", &seed); err != nil {
			return err
		}
		c.Seed = int64(seed)
		return nil
	})
	set(func() error { return readSlice(t, "training_slice", &c.TrainingSlice) })
	set(func() error { return readSlice(t, "validation_slice", &c.ValidationSlice) })
	set(func() error { return readSlice(t, "test_slice", &c.TestSlice) })
	set(func() error { return readStrings(t, "sig_samples", &c.SigSamples) })
	set(func() error { return readFloats(t, "sig_sampling_lengths", &c.SigSamplingLengths) })
	set(func() error { return readStrings(t, "bkg_samples", &c.BkgSamples) })
	set(func() error { return readFloats(t, "bkg_sampling_lengths", &c.BkgSamplingLengths) })
	set(func() error { return readReweighting(t.FilterStripPrefix("sample_reweighting."), c.SampleReweighting) })

	set(func() error { return readFloat(e, "lambda", &c.Environment.Lambda) })
	set(func() error { return readFloat(e, "classifier_rate", &c.Environment.ClassifierRate) })
	set(func() error { return readFloat(e, "adversary_rate", &c.Environment.AdversaryRate) })
	set(func() error { return readInt(e, "adversary_steps", &c.Environment.AdversarySteps) })
	set(func() error { return readFloat(e, "classifier_momentum", &c.Environment.ClassifierMomentum) })

	if err != nil {
		return TrainingConfig{}, err
	}
	return c, c.Validate()
}

// Write stores the configuration as a meta.conf file inside dir, in a form FromFile reads back.
func Write(dir string, c TrainingConfig) error {
	f, err := os.OpenFile(filepath.Join(dir, MetaFile), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, c)
}

// Encode writes the configuration in properties format to w.
func Encode(w io.Writer, c TrainingConfig) error {
	p := properties.NewProperties()

	values := [][2]string{
		{trainingPrefix + "training_branches", strings.Join(c.TrainingBranches, ",")},
		{trainingPrefix + "nuisance_branches", strings.Join(c.NuisanceBranches, ",")},
		{trainingPrefix + "auxiliary_branches", strings.Join(c.AuxiliaryBranches, ",")},
		{trainingPrefix + "weight_branch", c.WeightBranch},
		{trainingPrefix + "pretrain_batches", strconv.Itoa(c.PretrainBatches)},
		{trainingPrefix + "training_batches", strconv.Itoa(c.TrainingBatches)},
		{trainingPrefix + "batch_size", strconv.Itoa(c.BatchSize)},
		{trainingPrefix + "printout_interval", strconv.Itoa(c.PrintoutInterval)},
		{trainingPrefix + "weight_tolerance", formatFloat(c.WeightTolerance)},
		{trainingPrefix + "max_sampling_iterations", strconv.Itoa(c.MaxSamplingIterations)},
		{trainingPrefix + "max_sampling_growth", strconv.Itoa(c.MaxSamplingGrowth)},
		{trainingPrefix + "seed", strconv.FormatInt(c.Seed, 10)},
		{trainingPrefix + "training_slice", formatSlice(c.TrainingSlice)},
		{trainingPrefix + "validation_slice", formatSlice(c.ValidationSlice)},
		{trainingPrefix + "test_slice", formatSlice(c.TestSlice)},
		{trainingPrefix + "sig_samples", strings.Join(c.SigSamples, ",")},
		{trainingPrefix + "sig_sampling_lengths", formatFloats(c.SigSamplingLengths)},
		{trainingPrefix + "bkg_samples", strings.Join(c.BkgSamples, ",")},
		{trainingPrefix + "bkg_sampling_lengths", formatFloats(c.BkgSamplingLengths)},
	}
	for _, sample := range append(append([]string{}, c.SigSamples...), c.BkgSamples...) {
		values = append(values, [2]string{trainingPrefix + "sample_reweighting." + sample, formatFloat(c.Reweighting(sample))})
	}
	values = append(values,
		[2]string{environmentPrefix + "lambda", formatFloat(c.Environment.Lambda)},
		[2]string{environmentPrefix + "classifier_rate", formatFloat(c.Environment.ClassifierRate)},
		[2]string{environmentPrefix + "adversary_rate", formatFloat(c.Environment.AdversaryRate)},
		[2]string{environmentPrefix + "adversary_steps", strconv.Itoa(c.Environment.AdversarySteps)},
		[2]string{environmentPrefix + "classifier_momentum", formatFloat(c.Environment.ClassifierMomentum)},
	)

	for _, kv := range values {
		if _, _, err := p.Set(kv[0], kv[1]); err != nil {
			return errors.Wrapf(err, "could not set %s", kv[0])
		}
	}
	_, err := p.Write(w, properties.UTF8)
	return err
}

func (c TrainingConfig) clone() TrainingConfig {
	n := c
	n.TrainingBranches = append([]string(nil), c.TrainingBranches...)
	n.NuisanceBranches = append([]string(nil), c.NuisanceBranches...)
	n.AuxiliaryBranches = append([]string(nil), c.AuxiliaryBranches...)
	n.SigSamples = append([]string(nil), c.SigSamples...)
	n.BkgSamples = append([]string(nil), c.BkgSamples...)
	n.SigSamplingLengths = append([]float64(nil), c.SigSamplingLengths...)
	n.BkgSamplingLengths = append([]float64(nil), c.BkgSamplingLengths...)
	n.SampleReweighting = make(map[string]float64, len(c.SampleReweighting))
	for k, v := range c.SampleReweighting {
		n.SampleReweighting[k] = v
	}
	return n
}

func readString(p *properties.Properties, key string, dst *string) error {
	if v, ok := p.Get(key); ok {
		*dst = strings.TrimSpace(v)
	}
	return nil
}

func readStrings(p *properties.Properties, key string, dst *[]string) error {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	var s []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); len(item) > 0 {
			s = append(s, item)
		}
	}
	*dst = s
	return nil
}

// readInt also accepts integral floats such as "100.0", which is how older configuration files store counts.
func readInt(p *properties.Properties, key string, dst *int) error {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if i, err := strconv.Atoi(v); err == nil {
		*dst = i
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return &Error{Key: key, Value: v, Reason: "not an integer"}
	}
	*dst = int(f)
	return nil
}

func readFloat(p *properties.Properties, key string, dst *float64) error {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return &Error{Key: key, Value: v, Reason: "not a number"}
	}
	*dst = f
	return nil
}

func readFloats(p *properties.Properties, key string, dst *[]float64) error {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	var fs []float64
	for _, item := range strings.Split(v, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
		if err != nil {
			return &Error{Key: key, Value: v, Reason: "not a list of numbers"}
		}
		fs = append(fs, f)
	}
	*dst = fs
	return nil
}

func readSlice(p *properties.Properties, key string, dst *Slice) error {
	var fs []float64
	if err := readFloats(p, key, &fs); err != nil {
		return err
	}
	if fs == nil {
		return nil
	}
	if len(fs) != 2 {
		v, _ := p.Get(key)
		return &Error{Key: key, Value: v, Reason: "a slice needs exactly two bounds"}
	}
	*dst = Slice{Lo: fs[0], Hi: fs[1]}
	return nil
}

func readReweighting(p *properties.Properties, dst map[string]float64) error {
	for _, sample := range p.Keys() {
		var w float64
		if err := readFloat(p, sample, &w); err != nil {
			return err
		}
		dst[sample] = w
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatFloats(fs []float64) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = formatFloat(f)
	}
	return strings.Join(s, ",")
}

func formatSlice(s Slice) string {
	return formatFloats([]float64{s.Lo, s.Hi})
}
