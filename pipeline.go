// Package adversarial provides a pipeline for training a classifier jointly with an adversary that penalises the
// dependence of its output on a nuisance variable, and for evaluating the result.
package adversarial

import (
	"github.com/dustin/go-humanize"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/dataset"
	"github.com/hscells/adversarial/eval"
	"github.com/hscells/adversarial/learning"
	"github.com/hscells/adversarial/output"
	"github.com/hscells/adversarial/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"io"
	"os"
	"path/filepath"
)

const (
	// StatisticsFile is the name the training statistics are persisted under.
	StatisticsFile = "training_evolution.json"
	// PerformanceFile is the name the performance dictionary is persisted under.
	PerformanceFile = "perfdict.json"
)

// Pipeline contains everything needed to train and evaluate one environment.
type Pipeline struct {
	Config      config.TrainingConfig
	Source      dataset.Source
	Environment learning.Environment

	OutputDir             string
	StatisticsFormatters  []output.StatisticsFormatter
	PerformanceFormatters []output.PerformanceFormatter
	Evaluator             *eval.Evaluator
	Logger                *zap.SugaredLogger
	Progress              io.Writer
}

type outputDirectory string

type progress struct {
	io.Writer
}

// OutputDirectory persists the statistics and the performance dictionary into dir.
func OutputDirectory(dir string) func() interface{} {
	return func() interface{} {
		return outputDirectory(dir)
	}
}

// StatisticsOutput adds statistics formatters to the pipeline.
func StatisticsOutput(formatter ...output.StatisticsFormatter) func() interface{} {
	return func() interface{} {
		return formatter
	}
}

// PerformanceOutput adds performance formatters to the pipeline.
func PerformanceOutput(formatter ...output.PerformanceFormatter) func() interface{} {
	return func() interface{} {
		return formatter
	}
}

// Evaluation evaluates the trained environment on the test slice with evaluator.
func Evaluation(evaluator eval.Evaluator) func() interface{} {
	return func() interface{} {
		return &evaluator
	}
}

// Logger sets the logger of the pipeline and of the training loop.
func Logger(logger *zap.SugaredLogger) func() interface{} {
	return func() interface{} {
		return logger
	}
}

// Progress shows progress bars of the training phases on w.
func Progress(w io.Writer) func() interface{} {
	return func() interface{} {
		return progress{w}
	}
}

// NewPipeline creates a new training pipeline. The configuration, the data source and the environment are required.
// Additional components are provided via the optional functional arguments.
func NewPipeline(conf config.TrainingConfig, src dataset.Source, env learning.Environment, components ...func() interface{}) Pipeline {
	p := Pipeline{
		Config:      conf,
		Source:      src,
		Environment: env,
		Logger:      zap.NewNop().Sugar(),
	}

	for _, component := range components {
		val := component()
		switch v := val.(type) {
		case outputDirectory:
			p.OutputDir = string(v)
		case []output.StatisticsFormatter:
			p.StatisticsFormatters = v
		case []output.PerformanceFormatter:
			p.PerformanceFormatters = v
		case *eval.Evaluator:
			p.Evaluator = v
		case *zap.SugaredLogger:
			p.Logger = v
		case progress:
			p.Progress = v.Writer
		}
	}

	return p
}

// Execute trains the environment on the training slice and, if an evaluator is configured, evaluates it on the test
// slice. Results are sent to c, which is closed once the pipeline has completed.
func (p Pipeline) Execute(c chan PipelineResult) {
	defer close(c)
	fail := func(err error) {
		c <- PipelineResult{
			Error: err,
			Type:  Error,
		}
	}

	if p.Source == nil || p.Environment == nil {
		fail(errors.New("pipeline requires a data source and an environment"))
		return
	}
	if len(p.OutputDir) > 0 {
		if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
			fail(err)
			return
		}
	}

	p.Logger.Info("loading training data...")
	training, err := dataset.Load(p.Source, p.Config, p.Config.TrainingSlice)
	if err != nil {
		fail(errors.Wrap(err, "could not load training data"))
		return
	}
	sig, bkg, err := training.Merged()
	if err != nil {
		fail(err)
		return
	}
	p.Logger.Infof("training on %s signal and %s background events",
		humanize.Comma(int64(sig.Len())), humanize.Comma(int64(bkg.Len())))

	options := []func(*learning.Trainer){learning.TrainerLogger(p.Logger)}
	if p.Progress != nil {
		options = append(options, learning.ShowProgress(p.Progress))
	}
	trainer, err := learning.NewTrainerFromConfig(p.Config, options...)
	if err != nil {
		fail(err)
		return
	}
	if err := trainer.Train(p.Environment, sig, bkg); err != nil {
		fail(err)
		return
	}

	statistics := trainer.Statistics()
	if len(p.OutputDir) > 0 {
		if err := statistics.Persist(filepath.Join(p.OutputDir, StatisticsFile)); err != nil {
			fail(err)
			return
		}
	}
	names := statistics.Names()
	data := make([][]float64, len(names))
	for i, name := range names {
		data[i] = statistics.Series(name)
	}
	formatted := make([]string, len(p.StatisticsFormatters))
	for i, formatter := range p.StatisticsFormatters {
		if formatted[i], err = formatter(names, data); err != nil {
			fail(err)
			return
		}
	}
	c <- PipelineResult{
		Statistics: statistics,
		Formatted:  formatted,
		Type:       Statistics,
	}

	if p.Evaluator != nil {
		p.Logger.Info("evaluating on the test data...")
		test, err := dataset.Load(p.Source, p.Config, p.Config.TestSlice)
		if err != nil {
			fail(errors.Wrap(err, "could not load test data"))
			return
		}
		perf, err := p.Evaluator.PerformanceMetrics(p.Environment, test)
		if err != nil {
			fail(err)
			return
		}
		p.Logger.Infow("performance", "perfdict", perf)

		run := "run"
		if len(p.OutputDir) > 0 {
			if err := store.WriteJSON(store.NewDirectory(p.OutputDir), PerformanceFile, perf); err != nil {
				fail(err)
				return
			}
			run = filepath.Base(p.OutputDir)
		}
		formatted := make([]string, len(p.PerformanceFormatters))
		for i, formatter := range p.PerformanceFormatters {
			if formatted[i], err = formatter(map[string]map[string]float64{run: perf}); err != nil {
				fail(err)
				return
			}
		}
		c <- PipelineResult{
			Performance: perf,
			Formatted:   formatted,
			Type:        Performance,
		}
	}

	c <- PipelineResult{
		Type: Done,
	}
}
