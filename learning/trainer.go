package learning

import (
	"fmt"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/dataset"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/cheggaaa/pb.v1"
	"io"
	"math/rand"
	"os"
)

// BatchKey is the name of the series holding the zero-based index of each training batch.
const BatchKey = "batch"

// Trainer drives the adversarial optimisation of an environment. Training happens in two phases: a pretraining
// phase where only the adversary is updated, and a training phase where, for every batch, the adversary is updated
// first and the classifier is then updated against the refreshed adversary.
type Trainer struct {
	conf       config.TrainingConfig
	sampler    Sampler
	statistics *Statistics
	logger     *zap.SugaredLogger
	progress   bool
	output     io.Writer
}

// TrainerLogger sets the logger diagnostics are written to.
func TrainerLogger(logger *zap.SugaredLogger) func(*Trainer) {
	return func(t *Trainer) {
		t.logger = logger
	}
}

// ShowProgress displays a progress bar for each phase on w.
func ShowProgress(w io.Writer) func(*Trainer) {
	return func(t *Trainer) {
		t.progress = true
		t.output = w
	}
}

// NewTrainer creates a trainer drawing its batches from sampler. The numbers of batches and the printout interval
// are taken from conf.
func NewTrainer(conf config.TrainingConfig, sampler Sampler, options ...func(*Trainer)) *Trainer {
	t := &Trainer{
		conf:       conf,
		sampler:    sampler,
		statistics: NewStatistics(),
		logger:     zap.NewNop().Sugar(),
		output:     os.Stdout,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// NewTrainerFromConfig creates a trainer with a weight balanced sampler set up from conf. Its random numbers are
// seeded with the configured seed so runs can be repeated.
func NewTrainerFromConfig(conf config.TrainingConfig, options ...func(*Trainer)) (*Trainer, error) {
	t := NewTrainer(conf, nil, options...)
	s, err := NewWeightBalancedSampler(conf.BatchSize,
		WeightTolerance(conf.WeightTolerance),
		MaxIterations(conf.MaxSamplingIterations),
		MaxGrowth(conf.MaxSamplingGrowth),
		RandomSource(rand.New(rand.NewSource(conf.Seed))),
		SamplerLogger(t.logger))
	if err != nil {
		return nil, err
	}
	t.sampler = s
	return t, nil
}

// Statistics returns the series recorded by the last call to Train.
func (t *Trainer) Statistics() *Statistics {
	return t.statistics
}

// Train runs the pretraining and training phases on env. Any error stops the run and is returned as a *RunError
// naming the phase and batch, except invalid parameters which are reported as a *ConfigurationError before the
// environment is touched.
func (t *Trainer) Train(env Trainable, sig, bkg dataset.Partition) error {
	if err := t.validate(sig, bkg); err != nil {
		return err
	}
	t.statistics = NewStatistics()

	// The environment sees the full training dataset once, signal rows first.
	data, err := dataset.Stack(sig.Features, bkg.Features)
	if err != nil {
		return &RunError{Phase: Setup, Batch: -1, Op: "stack_data", Err: err}
	}
	nuisances, err := dataset.Stack(sig.Nuisances, bkg.Nuisances)
	if err != nil {
		return &RunError{Phase: Setup, Batch: -1, Op: "stack_nuisances", Err: err}
	}
	if err := env.Init(data, nuisances); err != nil {
		return &RunError{Phase: Setup, Batch: -1, Op: "init", Err: err}
	}

	sigSources, bkgSources := sig.Sources(), bkg.Sources()

	t.logger.Infof("pretraining adversarial network for %d batches", t.conf.PretrainBatches)
	bar := t.bar(t.conf.PretrainBatches, "pretrain ")
	for batch := 0; batch < t.conf.PretrainBatches; batch++ {
		b, err := t.sample(sigSources, sig.Weights, bkgSources, bkg.Weights)
		if err != nil {
			bar.Finish()
			return &RunError{Phase: Pretrain, Batch: batch, Op: "sample", Err: err}
		}
		t.logger.Infow("dynamic batch size", "phase", Pretrain, "batch", batch, "size", b.Len())

		if err := env.TrainAdversary(b); err != nil {
			bar.Finish()
			return &RunError{Phase: Pretrain, Batch: batch, Op: "train_adversary", Err: err}
		}
		if err := env.DumpLossInformation(b); err != nil {
			bar.Finish()
			return &RunError{Phase: Pretrain, Batch: batch, Op: "dump_loss_information", Err: err}
		}
		bar.Increment()
	}
	bar.Finish()
	t.logger.Info("pretraining complete")

	t.logger.Infof("starting training for %d batches", t.conf.TrainingBatches)
	bar = t.bar(t.conf.TrainingBatches, "train ")
	defer bar.Finish()
	for batch := 0; batch < t.conf.TrainingBatches; batch++ {
		b, err := t.sample(sigSources, sig.Weights, bkgSources, bkg.Weights)
		if err != nil {
			return &RunError{Phase: Train, Batch: batch, Op: "sample", Err: err}
		}
		t.logger.Infow("dynamic batch size", "phase", Train, "batch", batch, "size", b.Len())

		if err := env.TrainAdversary(b); err != nil {
			return &RunError{Phase: Train, Batch: batch, Op: "train_adversary", Err: err}
		}
		if err := env.TrainStep(b); err != nil {
			return &RunError{Phase: Train, Batch: batch, Op: "train_step", Err: err}
		}

		metrics, err := env.ModelStatistics(b)
		if err != nil {
			return &RunError{Phase: Train, Batch: batch, Op: "model_statistics", Err: err}
		}
		if _, ok := metrics[BatchKey]; ok {
			return &RunError{Phase: Train, Batch: batch, Op: "model_statistics", Err: errors.Wrapf(ErrInconsistentRecord, "metric %s is reserved", BatchKey)}
		}
		record := make(map[string]float64, len(metrics)+1)
		for name, value := range metrics {
			record[name] = value
		}
		record[BatchKey] = float64(batch)
		if err := t.statistics.Record(record); err != nil {
			return &RunError{Phase: Train, Batch: batch, Op: "record_statistics", Err: err}
		}

		if batch%t.conf.PrintoutInterval == 0 {
			t.logger.Infow(fmt.Sprintf("batch %d", batch), "size", b.Len())
			if err := env.DumpLossInformation(b); err != nil {
				return &RunError{Phase: Train, Batch: batch, Op: "dump_loss_information", Err: err}
			}
			t.logger.Infow("statistics", "batch", batch, "stat_dict", record)
		}
		bar.Increment()
	}
	return nil
}

func (t *Trainer) validate(sig, bkg dataset.Partition) error {
	switch {
	case t.sampler == nil:
		return &ConfigurationError{Parameter: "sampler", Reason: "no sampler configured"}
	case t.conf.PretrainBatches < 0:
		return &ConfigurationError{Parameter: "pretrain_batches", Reason: fmt.Sprintf("must not be negative, got %d", t.conf.PretrainBatches)}
	case t.conf.TrainingBatches < 0:
		return &ConfigurationError{Parameter: "training_batches", Reason: fmt.Sprintf("must not be negative, got %d", t.conf.TrainingBatches)}
	case t.conf.PrintoutInterval <= 0:
		return &ConfigurationError{Parameter: "printout_interval", Reason: fmt.Sprintf("must be positive, got %d", t.conf.PrintoutInterval)}
	}
	if err := sig.Validate(); err != nil {
		return &ConfigurationError{Parameter: "signal", Reason: err.Error()}
	}
	if err := bkg.Validate(); err != nil {
		return &ConfigurationError{Parameter: "background", Reason: err.Error()}
	}
	_, fs := sig.Features.Dims()
	_, fb := bkg.Features.Dims()
	if fs != fb {
		return &ConfigurationError{Parameter: "features", Reason: fmt.Sprintf("signal has %d columns, background has %d", fs, fb)}
	}
	_, ns := sig.Nuisances.Dims()
	_, nb := bkg.Nuisances.Dims()
	if ns != nb {
		return &ConfigurationError{Parameter: "nuisances", Reason: fmt.Sprintf("signal has %d columns, background has %d", ns, nb)}
	}
	return nil
}

// sample draws a batch coherently from the (features, nuisances, labels) tuples of both classes.
func (t *Trainer) sample(sigSources []*mat.Dense, sigWeights []float64, bkgSources []*mat.Dense, bkgWeights []float64) (Batch, error) {
	sampled, weights, err := t.sampler.Sample(sigSources, sigWeights, bkgSources, bkgWeights)
	if err != nil {
		return Batch{}, err
	}
	if len(sampled) != 3 {
		return Batch{}, fmt.Errorf("sampler returned %d sources, expected 3", len(sampled))
	}
	return Batch{
		Features:  sampled[0],
		Nuisances: sampled[1],
		Labels:    sampled[2],
		Weights:   weights,
	}, nil
}

func (t *Trainer) bar(n int, prefix string) *pb.ProgressBar {
	bar := pb.New(n).Prefix(prefix)
	if t.progress {
		bar.Output = t.output
	} else {
		bar.NotPrint = true
	}
	return bar.Start()
}
