package model_test

import (
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/dataset"
	"github.com/hscells/adversarial/learning"
	"github.com/hscells/adversarial/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"math/rand"
	"testing"
)

// events returns n events of one class: a feature shifted by the label, a noise feature and a nuisance that follows
// the first feature.
func events(rng *rand.Rand, n int, label float64) dataset.Partition {
	features := mat.NewDense(n, 2, nil)
	nuisances := mat.NewDense(n, 1, nil)
	weights := make([]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64() + 2*label
		features.Set(i, 0, x)
		features.Set(i, 1, rng.NormFloat64())
		nuisances.Set(i, 0, 100+10*x+rng.NormFloat64())
		weights[i] = 0.5 + rng.Float64()
		labels[i] = label
	}
	return dataset.Partition{Features: features, Nuisances: nuisances, Weights: weights, Labels: labels}
}

func batchOf(t *testing.T, parts ...dataset.Partition) learning.Batch {
	p, err := dataset.Merge(parts...)
	require.NoError(t, err)
	return learning.Batch{Features: p.Features, Nuisances: p.Nuisances, Labels: p.LabelMatrix(), Weights: p.Weights}
}

func newEnvironment(t *testing.T, lambda float64) *model.AdversarialEnvironment {
	conf := config.Default().Environment
	conf.Lambda = lambda
	conf.ClassifierRate = 0.1
	conf.AdversaryRate = 0.1
	env, err := model.NewAdversarialEnvironment(conf)
	require.NoError(t, err)
	return env
}

func TestEnvironmentRequiresInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	env := newEnvironment(t, 1)
	b := batchOf(t, events(rng, 10, 1), events(rng, 10, 0))

	assert.Equal(t, model.ErrNotInitialised, env.TrainStep(b))
	assert.Equal(t, model.ErrNotInitialised, env.TrainAdversary(b))
	_, err := env.Predict(b.Features)
	assert.Equal(t, model.ErrNotInitialised, err)
}

func TestEnvironmentRejectsBadConfiguration(t *testing.T) {
	for _, mutate := range []func(*config.EnvironmentConfig){
		func(c *config.EnvironmentConfig) { c.Lambda = -1 },
		func(c *config.EnvironmentConfig) { c.ClassifierRate = 0 },
		func(c *config.EnvironmentConfig) { c.AdversaryRate = 0 },
		func(c *config.EnvironmentConfig) { c.AdversarySteps = 0 },
		func(c *config.EnvironmentConfig) { c.ClassifierMomentum = 1 },
	} {
		conf := config.Default().Environment
		mutate(&conf)
		_, err := model.NewAdversarialEnvironment(conf)
		assert.Error(t, err)
	}
}

func TestClassifierLearns(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	sig, bkg := events(rng, 200, 1), events(rng, 200, 0)
	b := batchOf(t, sig, bkg)

	env := newEnvironment(t, 0)
	require.NoError(t, env.Init(b.Features, b.Nuisances))

	before, err := env.ModelStatistics(b)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.NoError(t, env.TrainStep(b))
	}
	after, err := env.ModelStatistics(b)
	require.NoError(t, err)
	assert.True(t, after["classifier_loss"] < before["classifier_loss"], "loss went from %v to %v", before["classifier_loss"], after["classifier_loss"])

	pred, err := env.Predict(sig.Features)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 2, c)
	var mean float64
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1, pred.At(i, 0)+pred.At(i, 1), 1e-12)
		mean += pred.At(i, 1) / float64(r)
	}
	assert.True(t, mean > 0.5, "mean signal score %v", mean)
}

func TestAdversaryLearns(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b := batchOf(t, events(rng, 200, 1), events(rng, 200, 0))

	env := newEnvironment(t, 0)
	require.NoError(t, env.Init(b.Features, b.Nuisances))
	for i := 0; i < 100; i++ {
		require.NoError(t, env.TrainStep(b))
	}

	before, err := env.ModelStatistics(b)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.NoError(t, env.TrainAdversary(b))
	}
	after, err := env.ModelStatistics(b)
	require.NoError(t, err)
	assert.True(t, after["adversary_loss"] < before["adversary_loss"], "loss went from %v to %v", before["adversary_loss"], after["adversary_loss"])
	assert.InDelta(t, after["classifier_loss"]-after["lambda"]*after["adversary_loss"], after["total_loss"], 1e-12)
}

func TestEnvironmentTrainsInLoop(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	conf := config.Default()
	conf.PretrainBatches = 5
	conf.TrainingBatches = 20
	conf.BatchSize = 32
	conf.PrintoutInterval = 5

	env, err := model.NewAdversarialEnvironment(conf.Environment)
	require.NoError(t, err)
	trainer, err := learning.NewTrainerFromConfig(conf)
	require.NoError(t, err)
	require.NoError(t, trainer.Train(env, events(rng, 100, 1), events(rng, 100, 0)))

	s := trainer.Statistics()
	assert.Equal(t, 20, s.Len())
	assert.Equal(t, []string{"adversary_loss", "batch", "classifier_loss", "lambda", "total_loss"}, s.Names())
	assert.Equal(t, env.Parameters()["lambda"], s.Series("lambda")[0])
}
